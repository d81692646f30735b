package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/log"
	"github.com/yeisme/eduaccess/pkg/queue"
)

// Subscriber 订阅端，*mq.Client 实现该接口.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Runner 执行一次资料处理，*service.Pipeline 实现该接口.
type Runner interface {
	Run(ctx context.Context, id string) error
}

// Worker 消费 ea.material.process.requested 并以有限并发运行流水线.
//
// 消息在收到后立即 Ack：处理结果只记录在资料状态上，不依赖重投.
type Worker struct {
	sub     Subscriber
	runner  Runner
	workers int
	timeout time.Duration

	wg sync.WaitGroup
}

// NewWorker 按 pipeline 配置创建 Worker.
func NewWorker(sub Subscriber, runner Runner, cfg configs.PipelineConfig) *Worker {
	w := &Worker{sub: sub, runner: runner, workers: cfg.Workers, timeout: cfg.RunTimeout}
	if w.workers <= 0 {
		w.workers = configs.DefaultWorkers
	}

	return w
}

// Start 订阅处理主题并在后台消费，ctx 取消后停止接收新任务.
func (w *Worker) Start(ctx context.Context) error {
	if w.sub == nil || w.runner == nil {
		return errors.New("worker requires subscriber and runner")
	}

	ch, err := w.sub.Subscribe(ctx, queue.TopicMaterialProcessRequested)
	if err != nil {
		return err
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		w.consume(ctx, ch)
	}()

	log.Logger().Info().
		Str("topic", queue.TopicMaterialProcessRequested).
		Int("workers", w.workers).
		Msg("process worker started")

	return nil
}

// Wait 等待消费循环与进行中的任务全部结束.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context, ch <-chan *message.Message) {
	var g errgroup.Group

	g.SetLimit(w.workers)

	defer func() { _ = g.Wait() }()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			msg.Ack()

			env, err := queue.ParseProcessRequested(msg)
			if err != nil || env.Payload.MaterialID == "" {
				log.Logger().Warn().Err(err).Str("msg_uuid", msg.UUID).Msg("drop malformed process request")
				continue
			}

			id := env.Payload.MaterialID
			// 停机时已接收的任务继续跑完，不随 ctx 取消.
			runCtx := context.WithoutCancel(ctx)

			g.Go(func() error {
				w.run(runCtx, id)
				return nil
			})
		}
	}
}

func (w *Worker) run(ctx context.Context, id string) {
	if w.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	l := log.Logger().With().Str("material_id", id).Logger()

	err := w.runner.Run(ctx, id)

	switch {
	case err == nil:
	case errors.Is(err, service.ErrAlreadyProcessing):
		l.Info().Msg("material already processing, skipped")
	default:
		l.Error().Err(err).Msg("material processing failed")
	}
}
