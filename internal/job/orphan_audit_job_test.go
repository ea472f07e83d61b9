package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docscan/internal/model"
	"github.com/xxxsen/docscan/internal/schedule"
)

type fakeAuditor struct {
	orphans []model.OrphanVersion
	err     error
	userIDs []string
}

func (f *fakeAuditor) AuditOrphans(ctx context.Context, userID string) ([]model.OrphanVersion, error) {
	f.userIDs = append(f.userIDs, userID)
	return f.orphans, f.err
}

func TestOrphanAuditJob(t *testing.T) {
	auditor := &fakeAuditor{orphans: []model.OrphanVersion{{VersionID: "v1", DocumentID: "d1"}}}
	j := NewOrphanAuditJob(auditor)
	require.NoError(t, schedule.RunOnce(context.Background(), j))
	require.Equal(t, []string{""}, auditor.userIDs)
	require.Len(t, j.Last(), 1)

	auditor.err = errors.New("db down")
	require.Error(t, j.Run(context.Background()))
	require.Len(t, j.Last(), 1)
}

func TestOrphanAuditJobWithoutAuditor(t *testing.T) {
	require.NoError(t, NewOrphanAuditJob(nil).Run(context.Background()))
}
