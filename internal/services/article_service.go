package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/estatehub/internal/models"
	"github.com/charlesng35/estatehub/internal/repository"
	apperrors "github.com/charlesng35/estatehub/pkg/errors"
	"github.com/charlesng35/estatehub/pkg/validator"
)

type ArticleInput struct {
	Title          string  `json:"title" validate:"required,max=200"`
	Slug           string  `json:"slug" validate:"omitempty,slug,max=200"`
	Excerpt        string  `json:"excerpt" validate:"max=500"`
	Body           string  `json:"body" validate:"required"`
	OrganizationID *string `json:"organization_id"`
}

// ArticleService manages editorial content. Published articles are public;
// drafts are visible to whoever can edit them.
type ArticleService struct {
	db    *gorm.DB
	authz *AuthorizationService
	audit *AuditService
	now   func() time.Time
}

func NewArticleService(db *gorm.DB, authz *AuthorizationService, audit *AuditService) (*ArticleService, error) {
	if db == nil || authz == nil {
		return nil, errors.New("article service: db and authorization service are required")
	}
	return &ArticleService{db: db, authz: authz, audit: audit, now: time.Now}, nil
}

func (s *ArticleService) Create(ctx context.Context, input ArticleInput, auth AuthContext) (*models.Article, error) {
	ctx = ensureContext(ctx)
	if auth.UserID == "" {
		return nil, apperrors.NewUnauthorized(MsgAuthRequired)
	}
	if input.Slug = strings.TrimSpace(input.Slug); input.Slug == "" {
		input.Slug = slugify(input.Title)
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}
	orgID := trimmedPtr(input.OrganizationID)
	if orgID != nil {
		if _, err := s.authz.CanEditOrganizationProperties(ctx, auth, *orgID); err != nil {
			return nil, err
		}
	}

	article := &models.Article{
		Title:    sanitizePlain(input.Title),
		Slug:     input.Slug,
		Excerpt:  sanitizePlain(input.Excerpt),
		Body:     sanitizeRichText(input.Body),
		AuthorID: auth.UserID,
		OrgID:    orgID,
		Status:   models.ArticleDraft,
	}
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("An article with this slug already exists")
		}
		return nil, internalError(fmt.Errorf("article service: create: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "article.create", "article:"+article.ID, "success", nil))
	return article, nil
}

// Get returns a published article to anyone and a draft to its editors.
func (s *ArticleService) Get(ctx context.Context, idOrSlug string, auth AuthContext) (*models.Article, error) {
	ctx = ensureContext(ctx)
	article, err := s.load(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if article.Status != models.ArticlePublished && !s.authz.CanEditOwned(ctx, auth, article.AuthorID, article.OrgID) {
		return nil, apperrors.NewNotFound("Article not found")
	}
	return article, nil
}

// ListPublished returns published articles, newest first.
func (s *ArticleService) ListPublished(ctx context.Context, organizationID string, page repository.Pagination) (Page[models.Article], error) {
	query := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Article{}).
		Where("status = ?", models.ArticlePublished)
	if organizationID != "" {
		query = query.Where("organization_id = ?", organizationID)
	}
	return paginate[models.Article](query, "published_at DESC", page)
}

func (s *ArticleService) Update(ctx context.Context, id string, input ArticleInput, auth AuthContext) (*models.Article, error) {
	ctx = ensureContext(ctx)
	article, err := s.editable(ctx, id, auth)
	if err != nil {
		return nil, err
	}
	if input.Slug = strings.TrimSpace(input.Slug); input.Slug == "" {
		input.Slug = article.Slug
	}
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	updates := map[string]any{
		"title":   sanitizePlain(input.Title),
		"slug":    input.Slug,
		"excerpt": sanitizePlain(input.Excerpt),
		"body":    sanitizeRichText(input.Body),
	}
	if err := s.db.WithContext(ctx).Model(article).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("An article with this slug already exists")
		}
		return nil, internalError(fmt.Errorf("article service: update: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, "article.update", "article:"+article.ID, "success", nil))
	return s.load(ctx, article.ID)
}

// SetPublished publishes or unpublishes an article. The first publication
// timestamp is kept when an article is republished.
func (s *ArticleService) SetPublished(ctx context.Context, id string, published bool, auth AuthContext) (*models.Article, error) {
	ctx = ensureContext(ctx)
	article, err := s.editable(ctx, id, auth)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"status": models.ArticleDraft}
	action := "article.unpublish"
	if published {
		updates["status"] = models.ArticlePublished
		action = "article.publish"
		if article.PublishedAt == nil {
			updates["published_at"] = s.now().UTC()
		}
	}
	if err := s.db.WithContext(ctx).Model(article).Updates(updates).Error; err != nil {
		return nil, internalError(fmt.Errorf("article service: publish: %w", err))
	}

	recordAudit(s.audit, ctx, auditFor(auth, action, "article:"+article.ID, "success", nil))
	return s.load(ctx, article.ID)
}

func (s *ArticleService) Delete(ctx context.Context, id string, auth AuthContext) error {
	ctx = ensureContext(ctx)
	article, err := s.editable(ctx, id, auth)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(article).Error; err != nil {
		return internalError(fmt.Errorf("article service: delete: %w", err))
	}
	recordAudit(s.audit, ctx, auditFor(auth, "article.delete", "article:"+article.ID, "success", nil))
	return nil
}

func (s *ArticleService) editable(ctx context.Context, id string, auth AuthContext) (*models.Article, error) {
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.authz.CanEditOwned(ctx, auth, article.AuthorID, article.OrgID) {
		return nil, apperrors.NewForbidden("Unauthorized to edit this article")
	}
	return article, nil
}

func (s *ArticleService) load(ctx context.Context, idOrSlug string) (*models.Article, error) {
	var article models.Article
	err := s.db.WithContext(ctx).
		Scopes(func(db *gorm.DB) *gorm.DB { return byIDOrSlug(db, idOrSlug) }).
		Take(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Article not found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return &article, nil
}
