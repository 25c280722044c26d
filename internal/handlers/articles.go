package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/estatehub/internal/middleware"
	"github.com/charlesng35/estatehub/internal/services"
	"github.com/charlesng35/estatehub/pkg/response"
)

type ArticleHandler struct {
	svc *services.ArticleService
}

func NewArticleHandler(svc *services.ArticleService) *ArticleHandler {
	return &ArticleHandler{svc: svc}
}

// GET /api/articles lists published articles only.
func (h *ArticleHandler) List(c *gin.Context) {
	page, err := h.svc.ListPublished(requestContext(c), c.Query("organization_id"), pagination(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondPage(c, page)
}

// GET /api/articles/:slug serves drafts to their editors when a token is sent.
func (h *ArticleHandler) Get(c *gin.Context) {
	auth, _ := middleware.AuthFromContext(c)
	article, err := h.svc.Get(requestContext(c), c.Param("slug"), auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, article)
}

// POST /api/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.ArticleInput
	if !bindJSON(c, &body) {
		return
	}
	article, err := h.svc.Create(requestContext(c), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, article)
}

// PATCH /api/articles/:slug
func (h *ArticleHandler) Update(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	var body services.ArticleInput
	if !bindJSON(c, &body) {
		return
	}
	article, err := h.svc.Update(requestContext(c), c.Param("slug"), body, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, article)
}

// POST /api/articles/:slug/publish
func (h *ArticleHandler) Publish(c *gin.Context) {
	h.setPublished(c, true)
}

// POST /api/articles/:slug/unpublish
func (h *ArticleHandler) Unpublish(c *gin.Context) {
	h.setPublished(c, false)
}

func (h *ArticleHandler) setPublished(c *gin.Context, published bool) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	article, err := h.svc.SetPublished(requestContext(c), c.Param("slug"), published, auth)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, article)
}

// DELETE /api/articles/:slug
func (h *ArticleHandler) Delete(c *gin.Context) {
	auth, ok := callerAuth(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), c.Param("slug"), auth); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
