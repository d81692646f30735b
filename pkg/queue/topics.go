package queue

// 主题命名规范：ea.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：material(课程资料)、registry(对账任务)
// 状态：请求(requested)、完成(ed)、失败(failed)

const (
	// 课程资料领域.
	TopicMaterialUploaded         = "ea.material.uploaded"          // 资料已上传并写入元数据（status=pending）
	TopicMaterialProcessRequested = "ea.material.process.requested" // 请求处理资料（提取文本、摘要、语音）
	TopicMaterialProcessed        = "ea.material.processed"         // 处理完成（status=completed）
	TopicMaterialFailed           = "ea.material.failed"            // 处理失败（status=failed）

	// 对账领域.
	TopicRegistrySynced = "ea.registry.synced" // 一次完整对账结束（包含各子任务结果）
)

// 主题分组.
var (
	MaterialTopics = []string{
		TopicMaterialUploaded, TopicMaterialProcessRequested,
		TopicMaterialProcessed, TopicMaterialFailed,
	}

	RegistryTopics = []string{TopicRegistrySynced}
)
