package donation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"donationhub/pkg/authz"
	"donationhub/pkg/db/option"
	"donationhub/pkg/db/pagination"
	"donationhub/pkg/errutil"
	"donationhub/pkg/repository"
	"donationhub/pkg/sequence"
	"donationhub/services/campaign"
	"donationhub/services/ledger"
)

var tracer = otel.Tracer("donationhub/services/donation")

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	donation  repository.Repository[Donation]
	campaigns repository.Repository[campaign.Campaign]

	engine *ledger.Engine
	seq    sequence.Generator
	cache  campaign.Invalidator
}

type ServiceParams struct {
	fx.In

	DB     *gorm.DB
	Node   *snowflake.Node
	Engine *ledger.Engine
	Seq    sequence.Generator `optional:"true"`
	Cache  *campaign.Cache
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		donation:  repository.ProvideStore[Donation](p.DB),
		campaigns: repository.ProvideStore[campaign.Campaign](p.DB),
		engine:    p.Engine,
		seq:       p.Seq,
		cache:     p.Cache,
	}
}

type CreateRequest struct {
	CampaignID    string         `json:"campaign_id"`
	Amount        int64          `json:"amount"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Status        Status         `json:"status"`
	TransactionID string         `json:"transaction_id"`
	Notes         string         `json:"notes"`
	Metadata      map[string]any `json:"metadata"`
}

type UpdateStatusRequest struct {
	Status        Status  `json:"status"`
	TransactionID *string `json:"transaction_id"`
}

// Create records a donation against an active campaign. When the initial
// status is completed the campaign is credited inside the same transaction,
// so a failed ledger write leaves no donation behind.
func (s *Service) Create(ctx context.Context, donorID string, req *CreateRequest) (*Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.Create")
	defer span.End()

	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	receiptNo, err := s.nextReceipt(ctx)
	if err != nil {
		s.log(span).Warn("failed to issue receipt number", zap.Error(err))
	}

	var meta datatypes.JSON
	if len(req.Metadata) > 0 {
		metaBytes, _ := json.Marshal(req.Metadata)
		meta = datatypes.JSON(metaBytes)
	}

	d := &Donation{
		ID:            s.node.Generate().String(),
		ReceiptNo:     receiptNo,
		DonorID:       donorID,
		CampaignID:    req.CampaignID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Status:        status,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
		Metadata:      meta,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.campaigns.WithTrx(tx).FindOne(ctx, &campaign.Campaign{ID: req.CampaignID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if target == nil {
			return errutil.NotFound("campaign does not exist", nil)
		}
		if target.Status != campaign.StatusActive {
			return errutil.Conflict("campaign is not accepting donations", nil)
		}

		if err := s.donation.WithTrx(tx).Create(ctx, d); err != nil {
			return err
		}

		if d.Status == StatusCompleted {
			if _, err := s.engine.Apply(ctx, tx, d.CampaignID, d.ID, d.Amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.classify(span, err, "failed to create donation")
	}

	if d.Status == StatusCompleted {
		s.cache.InvalidateOngoing(ctx)
	}
	return d, nil
}

// UpdateStatus moves a donation through its lifecycle. Crossing the completed
// boundary credits or debits the campaign in the same transaction as the
// status write.
func (s *Service) UpdateStatus(ctx context.Context, donorID, donationID string, req *UpdateStatusRequest) (*Donation, error) {
	ctx, span := tracer.Start(ctx, "donation.UpdateStatus")
	defer span.End()

	if err := authz.ValidateID("donation_id", donationID); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, errutil.ValidationFailed("invalid donation payload", nil,
			errutil.WithDetails(errutil.Detail{Field: "status", Message: "must be one of pending, completed, refunded, canceled"}))
	}

	var updated *Donation
	var ledgerTouched bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.donation.WithTrx(tx).FindOne(ctx, &Donation{ID: donationID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if existing == nil {
			return errutil.NotFound("donation does not exist", nil)
		}

		if err := authz.Require(donorID, existing); err != nil {
			return err
		}

		if !CanTransition(existing.Status, req.Status) {
			return errutil.Conflict("donation status transition is not allowed", nil)
		}

		updates := map[string]any{
			"status":     req.Status,
			"updated_at": time.Now(),
		}
		if req.TransactionID != nil {
			updates["transaction_id"] = *req.TransactionID
		}
		if err := s.donation.WithTrx(tx).Update(ctx, donationID, updates); err != nil {
			return err
		}

		var delta int64
		switch {
		case existing.Status != StatusCompleted && req.Status == StatusCompleted:
			delta = existing.Amount
		case existing.Status == StatusCompleted && req.Status != StatusCompleted:
			delta = -existing.Amount
		}
		if delta != 0 {
			if _, err := s.engine.Apply(ctx, tx, existing.CampaignID, existing.ID, delta); err != nil {
				return err
			}
			ledgerTouched = true
		}

		updated, err = s.donation.WithTrx(tx).FindOne(ctx, &Donation{ID: donationID})
		return err
	})
	if err != nil {
		return nil, s.classify(span, err, "failed to update donation")
	}

	if ledgerTouched {
		s.cache.InvalidateOngoing(ctx)
	}
	return updated, nil
}

// Delete removes a donation. A completed donation is debited from its
// campaign first; removing any other status has no ledger effect.
func (s *Service) Delete(ctx context.Context, donorID, donationID string) error {
	ctx, span := tracer.Start(ctx, "donation.Delete")
	defer span.End()

	if err := authz.ValidateID("donation_id", donationID); err != nil {
		return err
	}

	var ledgerTouched bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.donation.WithTrx(tx).FindOne(ctx, &Donation{ID: donationID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if existing == nil {
			return errutil.NotFound("donation does not exist", nil)
		}

		if err := authz.Require(donorID, existing); err != nil {
			return err
		}

		if existing.Status == StatusCompleted {
			if _, err := s.engine.Apply(ctx, tx, existing.CampaignID, existing.ID, -existing.Amount); err != nil {
				return err
			}
			ledgerTouched = true
		}

		return s.donation.WithTrx(tx).Delete(ctx, donationID)
	})
	if err != nil {
		return s.classify(span, err, "failed to delete donation")
	}

	if ledgerTouched {
		s.cache.InvalidateOngoing(ctx)
	}
	return nil
}

// CampaignSummary is the campaign slice attached to each history item.
type CampaignSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	ImageRef      string          `json:"image_ref"`
	Status        campaign.Status `json:"status"`
	TargetAmount  int64           `json:"target_amount"`
	CurrentAmount int64           `json:"current_amount"`
}

type HistoryItem struct {
	Donation
	Campaign *CampaignSummary `json:"campaign,omitempty"`
}

// History pages through the donor's donations, newest first, each carrying a
// summary of the campaign it funded.
func (s *Service) History(ctx context.Context, donorID string, page pagination.Pagination) ([]*HistoryItem, *pagination.PageInfo, error) {
	ctx, span := tracer.Start(ctx, "donation.History")
	defer span.End()

	var cursor *pagination.Cursor
	if page.Cursor != "" {
		var err error
		if cursor, err = pagination.DecodeCursor(page.Cursor); err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
	}

	donations, err := s.donation.Find(ctx, &Donation{DonorID: donorID}, option.ApplyPagination(page, cursor))
	if err != nil {
		s.log(span).Error("failed to list donations", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list donations", err)
	}

	donations, info, err := pagination.BuildPage(donations, page.PageSize(), func(d *Donation) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	if err != nil {
		s.log(span).Error("failed to encode page cursor", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list donations", err)
	}

	summaries, err := s.campaignSummaries(ctx, donations)
	if err != nil {
		s.log(span).Error("failed to load campaign summaries", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list donations", err)
	}

	items := make([]*HistoryItem, 0, len(donations))
	for _, d := range donations {
		items = append(items, &HistoryItem{
			Donation: *d,
			Campaign: summaries[d.CampaignID],
		})
	}
	return items, info, nil
}

// DonatedCampaigns lists the distinct campaigns the donor has contributed to.
func (s *Service) DonatedCampaigns(ctx context.Context, donorID string) ([]*campaign.Campaign, error) {
	ctx, span := tracer.Start(ctx, "donation.DonatedCampaigns")
	defer span.End()

	donations, err := s.donation.Find(ctx, &Donation{DonorID: donorID})
	if err != nil {
		s.log(span).Error("failed to list donations", zap.Error(err))
		return nil, errutil.Internal("failed to list campaigns", err)
	}
	if len(donations) == 0 {
		return []*campaign.Campaign{}, nil
	}

	seen := make(map[string]bool, len(donations))
	ids := make([]string, 0, len(donations))
	for _, d := range donations {
		if !seen[d.CampaignID] {
			seen[d.CampaignID] = true
			ids = append(ids, d.CampaignID)
		}
	}

	campaigns, err := s.campaigns.Find(ctx, &campaign.Campaign{}, option.ApplyOperator(option.Condition{
		Field:    "id",
		Operator: option.IN,
		Value:    ids,
	}))
	if err != nil {
		s.log(span).Error("failed to list campaigns", zap.Error(err))
		return nil, errutil.Internal("failed to list campaigns", err)
	}
	return campaigns, nil
}

// CountOutstanding reports donations still holding funds against a campaign.
// Canceled and refunded donations no longer block campaign deletion.
func (s *Service) CountOutstanding(ctx context.Context, campaignID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Donation{}).
		Where("campaign_id = ?", campaignID).
		Where("status NOT IN ?", []Status{StatusCanceled, StatusRefunded}).
		Count(&n).Error
	return n, err
}

func (s *Service) campaignSummaries(ctx context.Context, donations []*Donation) (map[string]*CampaignSummary, error) {
	if len(donations) == 0 {
		return map[string]*CampaignSummary{}, nil
	}

	seen := make(map[string]bool, len(donations))
	ids := make([]string, 0, len(donations))
	for _, d := range donations {
		if !seen[d.CampaignID] {
			seen[d.CampaignID] = true
			ids = append(ids, d.CampaignID)
		}
	}

	campaigns, err := s.campaigns.Find(ctx, &campaign.Campaign{}, option.ApplyOperator(option.Condition{
		Field:    "id",
		Operator: option.IN,
		Value:    ids,
	}))
	if err != nil {
		return nil, err
	}

	out := make(map[string]*CampaignSummary, len(campaigns))
	for _, c := range campaigns {
		out[c.ID] = &CampaignSummary{
			ID:            c.ID,
			Name:          c.Name,
			Slug:          c.Slug,
			ImageRef:      c.ImageRef,
			Status:        c.Status,
			TargetAmount:  c.TargetAmount,
			CurrentAmount: c.CurrentAmount,
		}
	}
	return out, nil
}

func (s *Service) validateCreate(req *CreateRequest) error {
	var details []errutil.Detail

	if err := authz.ValidateID("campaign_id", req.CampaignID); err != nil {
		details = append(details, errutil.Detail{Field: "campaign_id", Message: "must be a well-formed identifier"})
	}
	if req.Amount < 1 {
		details = append(details, errutil.Detail{Field: "amount", Message: "must be at least 1"})
	}
	if !req.PaymentMethod.Valid() {
		details = append(details, errutil.Detail{Field: "payment_method", Message: "must be one of card, debit_card, paypal, bank_transfer"})
	}
	if req.Status != "" && req.Status != StatusPending && req.Status != StatusCompleted {
		details = append(details, errutil.Detail{Field: "status", Message: "initial status must be pending or completed"})
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("invalid donation payload", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s *Service) nextReceipt(ctx context.Context) (string, error) {
	if s.seq == nil {
		return "", nil
	}
	return s.seq.NextReceiptNo(ctx)
}

// classify keeps already-classified errors intact and wraps raw store
// failures so no driver detail reaches the caller.
func (s *Service) classify(span trace.Span, err error, msg string) error {
	if _, ok := err.(errutil.BaseError); ok {
		return err
	}
	s.log(span).Error(msg, zap.Error(err))
	return errutil.Internal(msg, err)
}

func (s *Service) log(span trace.Span) *zap.Logger {
	sc := span.SpanContext()
	if !sc.IsValid() {
		return zap.L()
	}
	return zap.L().With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
