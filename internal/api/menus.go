package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/menum/internal/menu"
	"github.com/nao1215/menum/pkg/apperr"
	"github.com/nao1215/menum/pkg/middleware"
)

// handleListMenus は呼び出し元が所有するメニューの一覧を返すハンドラを返す。
func (s *Server) handleListMenus() gin.HandlerFunc {
	return func(c *gin.Context) {
		menus, err := s.menus.List(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, menus)
	}
}

// handleGetMenu はメニュー取得を処理するハンドラを返す。
func (s *Server) handleGetMenu() gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := s.menus.Get(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

// handleUpdateMenu はメニューの部分更新を処理するハンドラを返す。
// nameが省略またはnullの場合は変更せず、空文字列は有効な値として扱う。
func (s *Server) handleUpdateMenu() gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch menu.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			middleware.RespondError(c, apperr.Wrap(apperr.KindBadRequest, "Invalid request body", err))
			return
		}

		m, err := s.menus.Update(c.Request.Context(), c.Param("id"), patch, middleware.GetUserID(c))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
