package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatehub/internal/auditctx"
	"github.com/charlesng35/estatehub/internal/database/testutil"
	"github.com/charlesng35/estatehub/internal/models"
)

func TestAuditServiceLogAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := context.Background()
	userID := "user-1"
	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID:   &userID,
		Username: "alice@example.com",
		Action:   "property.create",
		Resource: "property:p1",
		Result:   "success",
		Metadata: map[string]any{"organization_id": "org-1"},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "auth.login", Result: "failure"}))

	logs, total, err := svc.List(ctx, AuditListOptions{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	logs, total, err = svc.List(ctx, AuditListOptions{Filters: AuditFilters{Result: "success"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "property.create", logs[0].Action)
	require.Equal(t, userID, *logs[0].UserID)

	var metadata map[string]any
	require.NoError(t, json.Unmarshal([]byte(logs[0].Metadata), &metadata))
	require.Equal(t, "org-1", metadata["organization_id"])
}

func TestAuditServiceFillsActorFromContext(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID:         "user-9",
		Email:          "bob@example.com",
		OrganizationID: "4b0a2a5e-5a4f-4f0e-9d3f-00000000000a",
		IPAddress:      "10.0.0.1",
		UserAgent:      "curl/8",
	})
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "organization.create", Result: "success"}))

	var log models.AuditLog
	require.NoError(t, db.First(&log).Error)
	require.Equal(t, "user-9", *log.UserID)
	require.Equal(t, "bob@example.com", log.Username)
	require.Equal(t, "10.0.0.1", log.IPAddress)
	require.Equal(t, "curl/8", log.UserAgent)
	require.NotNil(t, log.OrganizationID)
	require.Equal(t, "4b0a2a5e-5a4f-4f0e-9d3f-00000000000a", *log.OrganizationID)
}

func TestAuditServiceAttributesOrganizationResources(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)
	ctx := context.Background()

	orgID := "4b0a2a5e-5a4f-4f0e-9d3f-00000000000b"
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "organization.update", Resource: "organization:" + orgID, Result: "success"}))
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "property.update", Resource: "property:p1", Result: "success"}))

	logs, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{OrganizationID: orgID}})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "organization.update", logs[0].Action)
}

func TestAuditServiceRejectsIncompleteEntries(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.Error(t, svc.Log(context.Background(), AuditEntry{Result: "success"}))
	require.Error(t, svc.Log(context.Background(), AuditEntry{Action: "x"}))
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{
		BaseModel: models.BaseModel{CreatedAt: time.Now().AddDate(0, 0, -10)},
		Action:    "old.action",
		Result:    "success",
	}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, svc.Log(context.Background(), AuditEntry{Action: "new.action", Result: "success"}))

	rows, err := svc.CleanupOlderThan(context.Background(), 5*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}
