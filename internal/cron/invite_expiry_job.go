package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tipflow-backend/pkg/logger"
)

type InviteExpiryJobParams struct {
	Logger  *logger.Logger
	Invites inviteExpirer
}

type inviteExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// NewInviteExpiryJob sweeps pending invites whose deadline passed. Accept
// also checks expiry inline, so the sweep is bookkeeping, not enforcement.
func NewInviteExpiryJob(params InviteExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Invites == nil {
		return nil, fmt.Errorf("invites service required")
	}
	return &inviteExpiryJob{logg: params.Logger, invites: params.Invites}, nil
}

type inviteExpiryJob struct {
	logg    *logger.Logger
	invites inviteExpirer
}

func (j *inviteExpiryJob) Name() string { return "invite-expiry" }

func (j *inviteExpiryJob) Run(ctx context.Context) error {
	expired, err := j.invites.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("invite expiry: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_expired", expired), "invite expiry sweep complete")
	return nil
}
