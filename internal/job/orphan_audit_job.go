package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/model"
)

type orphanAuditor interface {
	AuditOrphans(ctx context.Context, userID string) ([]model.OrphanVersion, error)
}

// OrphanAuditJob reports versions whose content change never reached the
// document. It only reports; nothing is deleted.
type OrphanAuditJob struct {
	auditor orphanAuditor
	last    []model.OrphanVersion
}

func NewOrphanAuditJob(auditor orphanAuditor) *OrphanAuditJob {
	return &OrphanAuditJob{auditor: auditor}
}

func (j *OrphanAuditJob) Name() string {
	return "orphan_version_audit"
}

func (j *OrphanAuditJob) Run(ctx context.Context) error {
	if j.auditor == nil {
		return nil
	}
	orphans, err := j.auditor.AuditOrphans(ctx, "")
	if err != nil {
		return err
	}
	j.last = orphans
	if len(orphans) > 0 {
		logutil.GetLogger(ctx).Warn("orphan versions found", zap.Int("count", len(orphans)))
	}
	return nil
}

// Last returns the result of the most recent run.
func (j *OrphanAuditJob) Last() []model.OrphanVersion {
	return j.last
}
