package handle

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/eduaccess/pkg/internal/service"
	"github.com/yeisme/eduaccess/pkg/internal/storage"
	"github.com/yeisme/eduaccess/pkg/internal/types"
	"github.com/yeisme/eduaccess/pkg/log"
	"github.com/yeisme/eduaccess/pkg/rule"
)

// ProcessMaterial 提交资料处理任务后立即返回.
//
//	@Summary		提交资料处理
//	@Description	异步执行 提取文本 -> 生成摘要与简化版 -> 合成音频，结果通过轮询 GET /materials/{id} 获取
//	@Tags			资料
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.ProcessMaterialRequest	true	"资料 id"
//	@Success		200		{object}	types.ProcessMaterialResponse
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		503		{object}	types.ErrorResponse
//	@Router			/materials/process [post]
func (h *Handlers) ProcessMaterial(c *gin.Context) {
	var req types.ProcessMaterialRequest
	if !bindJSON(c, &req) {
		return
	}

	id := strings.TrimSpace(req.MaterialID)
	if id == "" {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error: "invalid request body", Details: map[string]string{"MaterialID": "is required"},
		})

		return
	}

	if err := h.Materials.Enqueue(c.Request.Context(), id, requester(c)); err != nil {
		log.Logger().Error().Err(err).Str("material_id", id).Msg("enqueue processing failed")
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "processing queue unavailable"})

		return
	}

	c.JSON(http.StatusOK, types.ProcessMaterialResponse{Message: "Processing started", ID: id})
}

// UploadMaterial 上传资料文件并创建 pending 记录.
//
//	@Summary	上传资料
//	@Tags		资料
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file		formData	file	true	"PDF 或文本文件"
//	@Param		title		formData	string	false	"标题，默认取文件名"
//	@Param		description	formData	string	false	"描述"
//	@Success	201			{object}	model.Material
//	@Failure	400			{object}	types.ErrorResponse
//	@Failure	413			{object}	types.ErrorResponse
//	@Failure	500			{object}	types.ErrorResponse
//	@Router		/materials [post]
func (h *Handlers) UploadMaterial(c *gin.Context) {
	l := log.Logger()

	if h.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || (h.MaxUploadSize > 0 && c.Request.ContentLength > h.MaxUploadSize) {
			c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: "file too large"})
			return
		}

		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "missing file"})

		return
	}

	if h.MaxUploadSize > 0 && fh.Size > h.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: "file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		return
	}

	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "file is empty"})
		return
	}

	m, err := h.Materials.Upload(c.Request.Context(), service.UploadInput{
		UserID:      requester(c),
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		l.Error().Err(err).Str("file_name", fh.Filename).Msg("upload material failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})

		return
	}

	c.JSON(http.StatusCreated, m)
}

// GetMaterial 查询资料及处理状态.
//
//	@Summary	查询资料
//	@Tags		资料
//	@Produce	json
//	@Param		id	path		string	true	"资料 id"
//	@Success	200	{object}	model.Material
//	@Failure	404	{object}	types.ErrorResponse
//	@Failure	500	{object}	types.ErrorResponse
//	@Router		/materials/{id} [get]
func (h *Handlers) GetMaterial(c *gin.Context) {
	m, err := h.Materials.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeMaterialError(c, err)
		return
	}

	c.JSON(http.StatusOK, m)
}

// MaterialURL 生成源文件或音频的限时下载链接.
//
//	@Summary	资料下载链接
//	@Tags		资料
//	@Produce	json
//	@Param		id		path		string	true	"资料 id"
//	@Param		kind	query		string	false	"file 或 audio"	Enums(file, audio)
//	@Success	200		{object}	types.MaterialURLResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/materials/{id}/url [get]
func (h *Handlers) MaterialURL(c *gin.Context) {
	id := c.Param("id")
	kind := c.DefaultQuery("kind", service.KindFile)

	if err := rule.ValidateVar(kind, "oneof=file audio"); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "kind must be file or audio"})
		return
	}

	url, err := h.Materials.DownloadURL(c.Request.Context(), id, kind)
	if err != nil {
		writeMaterialError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MaterialURLResponse{
		ID:        id,
		Kind:      kind,
		URL:       url,
		ExpiresIn: int(h.Materials.PresignExpiry().Seconds()),
	})
}

func writeMaterialError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrMaterialNotFound):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "material not found"})
	case errors.Is(err, service.ErrNoAudio):
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "material has no audio"})
	default:
		log.Logger().Error().Err(err).Str("material_id", c.Param("id")).Msg("material request failed")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: err.Error()})
	}
}
