package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/menum/internal/imageupload"
	"github.com/nao1215/menum/internal/storage"
	"github.com/nao1215/menum/pkg/apperr"
	"github.com/nao1215/menum/pkg/middleware"
)

// filesField は画像を受け取るマルチパートのフィールド名。
const filesField = "files"

// maxUploadBodySize はアップロード要求のボディサイズ上限。
// 上限を1ファイル超えて送られてもファイル数の検証まで到達できる大きさにする。
const maxUploadBodySize = int64(imageupload.MaxFileCount+1)*imageupload.MaxFileSize + 1<<20

// uploadImagesResponse は画像アップロードのレスポンス。
type uploadImagesResponse struct {
	// Images は保存した画像の位置（提出順）。
	Images []storage.Object `json:"images"`
}

// handleUploadImages は画像アップロードを処理するハンドラを返す。
func (s *Server) handleUploadImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBodySize)

		files, err := multipartFiles(c)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}

		objects, err := s.uploader.Upload(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), imageupload.FromMultipart(files))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, uploadImagesResponse{Images: objects})
	}
}

// multipartFiles はフォームから画像ファイルを取り出す。
// マルチパートでない要求はファイル0件として扱い、ファイル数の検証に委ねる。
func multipartFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			return nil, nil
		case errors.As(err, &maxErr):
			return nil, apperr.Wrap(apperr.KindBadRequest, "Request body too large", err)
		default:
			return nil, apperr.Wrap(apperr.KindBadRequest, "Invalid multipart form", err)
		}
	}
	return form.File[filesField], nil
}
