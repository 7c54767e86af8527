package handlers

import (
	"mime/multipart"
	"strconv"

	"keywe-backend/internal/services"
	"keywe-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// bindJSON binds the body into req and writes the validation error on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.RespondError(c, utils.BindingError(err))
		return false
	}
	return true
}

// formFiles opens every file uploaded under field. The returned func closes them.
func formFiles(c *gin.Context, field string) ([]services.FileUpload, func(), error) {
	closeAll := func() {}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, closeAll, utils.NewBadRequestError("multipart form expected")
	}

	headers := form.File[field]
	if len(headers) == 0 {
		headers = form.File[field+"[]"]
	}

	opened := make([]multipart.File, 0, len(headers))
	closeAll = func() {
		for _, f := range opened {
			f.Close()
		}
	}

	uploads := make([]services.FileUpload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, utils.NewBadRequestError("failed to read uploaded file " + h.Filename)
		}
		opened = append(opened, f)
		uploads = append(uploads, services.FileUpload{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Reader:      f,
		})
	}
	return uploads, closeAll, nil
}
