package campaign

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"donationhub/pkg/authz"
	"donationhub/pkg/db/option"
	"donationhub/pkg/db/pagination"
	"donationhub/pkg/errutil"
	"donationhub/pkg/minio"
	"donationhub/pkg/repository"
	"donationhub/pkg/sequence"
)

var tracer = otel.Tracer("donationhub/services/campaign")

// DonationCounter reports how many donations still hold funds against a
// campaign. Implemented by the donation service; wired through fx so the
// campaign package stays free of a donation import.
type DonationCounter interface {
	CountOutstanding(ctx context.Context, campaignID string) (int64, error)
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	campaign repository.Repository[Campaign]
	seq      sequence.Generator
	cache    *Cache
	media    minio.MediaStore
	counter  DonationCounter
}

type ServiceParams struct {
	fx.In

	DB      *gorm.DB
	Node    *snowflake.Node
	Seq     sequence.Generator `optional:"true"`
	Cache   *Cache
	Media   minio.MediaStore `optional:"true"`
	Counter DonationCounter
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		campaign: repository.ProvideStore[Campaign](p.DB),
		seq:      p.Seq,
		cache:    p.Cache,
		media:    p.Media,
		counter:  p.Counter,
	}
}

type CreateRequest struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	TargetAmount int64     `json:"target_amount"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	ImageRef     string    `json:"image_ref"`
}

type UpdateRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Category    *string    `json:"category"`
	Location    *string    `json:"location"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	ImageRef    *string    `json:"image_ref"`
}

func (s *Service) Create(ctx context.Context, orphanageID string, req *CreateRequest) (*Campaign, error) {
	ctx, span := tracer.Start(ctx, "campaign.Create")
	defer span.End()

	if err := s.validateCreate(ctx, req); err != nil {
		return nil, err
	}

	code, err := s.nextCode(ctx)
	if err != nil {
		s.log(span).Warn("failed to issue campaign code", zap.Error(err))
	}

	c := &Campaign{
		ID:            s.node.Generate().String(),
		Code:          code,
		Slug:          slug.Make(req.Name),
		OrphanageID:   orphanageID,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Location:      req.Location,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: 0,
		Status:        StatusActive,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		ImageRef:      req.ImageRef,
	}

	if err := s.campaign.Create(ctx, c); err != nil {
		s.log(span).Error("failed to create campaign", zap.Error(err))
		return nil, errutil.Internal("failed to create campaign", err)
	}

	s.cache.InvalidateOngoing(ctx)
	return c, nil
}

func (s *Service) Update(ctx context.Context, principalID, campaignID string, req *UpdateRequest) (*Campaign, error) {
	ctx, span := tracer.Start(ctx, "campaign.Update")
	defer span.End()

	if err := authz.ValidateID("campaign_id", campaignID); err != nil {
		return nil, err
	}

	existing, err := s.campaign.FindOne(ctx, &Campaign{ID: campaignID})
	if err != nil {
		s.log(span).Error("failed to query campaign", zap.Error(err))
		return nil, errutil.Internal("failed to query campaign", err)
	}
	if existing == nil {
		return nil, errutil.NotFound("campaign does not exist", nil)
	}

	if err := authz.Require(principalID, existing); err != nil {
		return nil, err
	}

	updates, err := s.validateUpdate(existing, req)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return existing, nil
	}

	updates["updated_at"] = time.Now()
	if err := s.campaign.Update(ctx, campaignID, updates); err != nil {
		s.log(span).Error("failed to update campaign", zap.Error(err))
		return nil, errutil.Internal("failed to update campaign", err)
	}

	s.cache.InvalidateOngoing(ctx)
	return s.campaign.FindOne(ctx, &Campaign{ID: campaignID})
}

func (s *Service) Delete(ctx context.Context, principalID, campaignID string) error {
	ctx, span := tracer.Start(ctx, "campaign.Delete")
	defer span.End()

	if err := authz.ValidateID("campaign_id", campaignID); err != nil {
		return err
	}

	existing, err := s.campaign.FindOne(ctx, &Campaign{ID: campaignID})
	if err != nil {
		s.log(span).Error("failed to query campaign", zap.Error(err))
		return errutil.Internal("failed to query campaign", err)
	}
	if existing == nil {
		return errutil.NotFound("campaign does not exist", nil)
	}

	if err := authz.Require(principalID, existing); err != nil {
		return err
	}

	outstanding, err := s.counter.CountOutstanding(ctx, campaignID)
	if err != nil {
		s.log(span).Error("failed to count donations", zap.Error(err))
		return errutil.Internal("failed to query donations", err)
	}
	if outstanding > 0 {
		return errutil.Conflict("campaign still has donations attached", nil)
	}

	if err := s.campaign.Delete(ctx, campaignID); err != nil {
		s.log(span).Error("failed to delete campaign", zap.Error(err))
		return errutil.Internal("failed to delete campaign", err)
	}

	s.cache.InvalidateOngoing(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, campaignID string) (*Campaign, error) {
	if err := authz.ValidateID("campaign_id", campaignID); err != nil {
		return nil, err
	}

	c, err := s.campaign.FindOne(ctx, &Campaign{ID: campaignID})
	if err != nil {
		return nil, errutil.Internal("failed to query campaign", err)
	}
	if c == nil {
		return nil, errutil.NotFound("campaign does not exist", nil)
	}
	return c, nil
}

// List pages through all campaigns newest first.
func (s *Service) List(ctx context.Context, page pagination.Pagination) ([]*Campaign, *pagination.PageInfo, error) {
	ctx, span := tracer.Start(ctx, "campaign.List")
	defer span.End()

	var cursor *pagination.Cursor
	if page.Cursor != "" {
		var err error
		if cursor, err = pagination.DecodeCursor(page.Cursor); err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
	}

	campaigns, err := s.campaign.Find(ctx, &Campaign{}, option.ApplyPagination(page, cursor))
	if err != nil {
		s.log(span).Error("failed to list campaigns", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list campaigns", err)
	}

	campaigns, info, err := pagination.BuildPage(campaigns, page.PageSize(), func(c *Campaign) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	if err != nil {
		s.log(span).Error("failed to encode page cursor", zap.Error(err))
		return nil, nil, errutil.Internal("failed to list campaigns", err)
	}
	return campaigns, info, nil
}

// ListOngoing serves the active-campaign listing from the redis cache.
// Statuses are as stored; an expired campaign may appear active until the
// sweep or a ledger write touches it.
func (s *Service) ListOngoing(ctx context.Context) ([]*Campaign, error) {
	ctx, span := tracer.Start(ctx, "campaign.ListOngoing")
	defer span.End()

	campaigns, err := s.cache.Ongoing(ctx, func(ctx context.Context) ([]*Campaign, error) {
		return s.campaign.Find(ctx, &Campaign{Status: StatusActive}, option.WithSortBy(option.QuerySortBy{
			SortBy:  "end_date",
			OrderBy: "asc",
			Allow:   map[string]bool{"end_date": true},
		}))
	})
	if err != nil {
		s.log(span).Error("failed to list ongoing campaigns", zap.Error(err))
		return nil, errutil.Internal("failed to list campaigns", err)
	}
	return campaigns, nil
}

func (s *Service) validateCreate(ctx context.Context, req *CreateRequest) error {
	var details []errutil.Detail

	requireText := func(field, value string) {
		if value == "" {
			details = append(details, errutil.Detail{Field: field, Message: "must not be empty"})
		}
	}
	requireText("name", req.Name)
	requireText("description", req.Description)
	requireText("category", req.Category)
	requireText("location", req.Location)

	if req.TargetAmount < 1 {
		details = append(details, errutil.Detail{Field: "target_amount", Message: "must be at least 1"})
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		details = append(details, errutil.Detail{Field: "end_date", Message: "start_date and end_date are required"})
	} else if req.EndDate.Before(req.StartDate) {
		details = append(details, errutil.Detail{Field: "end_date", Message: "must not precede start_date"})
	}
	if req.ImageRef == "" {
		details = append(details, errutil.Detail{Field: "image_ref", Message: "a campaign image is required"})
	} else if s.media != nil {
		exists, err := s.media.ImageExists(ctx, req.ImageRef)
		if err != nil {
			return errutil.Internal("failed to verify campaign image", err)
		}
		if !exists {
			details = append(details, errutil.Detail{Field: "image_ref", Message: "referenced image does not exist"})
		}
	}

	if len(details) > 0 {
		return errutil.ValidationFailed("invalid campaign payload", nil, errutil.WithDetails(details...))
	}
	return nil
}

func (s *Service) validateUpdate(existing *Campaign, req *UpdateRequest) (map[string]any, error) {
	var details []errutil.Detail
	updates := map[string]any{}

	setText := func(field string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			details = append(details, errutil.Detail{Field: field, Message: "must not be empty"})
			return
		}
		updates[field] = *v
	}
	setText("name", req.Name)
	setText("description", req.Description)
	setText("category", req.Category)
	setText("location", req.Location)
	setText("image_ref", req.ImageRef)

	start, end := existing.StartDate, existing.EndDate
	if req.StartDate != nil {
		start = *req.StartDate
		updates["start_date"] = start
	}
	if req.EndDate != nil {
		end = *req.EndDate
		updates["end_date"] = end
	}
	if end.Before(start) {
		details = append(details, errutil.Detail{Field: "end_date", Message: "must not precede start_date"})
	}

	if req.Name != nil && *req.Name != "" {
		updates["slug"] = slug.Make(*req.Name)
	}

	if len(details) > 0 {
		return nil, errutil.ValidationFailed("invalid campaign payload", nil, errutil.WithDetails(details...))
	}
	return updates, nil
}

func (s *Service) nextCode(ctx context.Context) (string, error) {
	if s.seq == nil {
		return "", nil
	}
	return s.seq.NextCampaignCode(ctx)
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
