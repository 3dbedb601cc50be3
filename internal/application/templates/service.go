package templates

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"certhub-backend/internal/application/policies"
	"certhub-backend/internal/domain"
	"certhub-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var hexColorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// MaxCanvasSide bounds either canvas dimension, whether configured or taken
// from the background image.
const MaxCanvasSide = 10000

type Service struct {
	DB     *gorm.DB
	Engine *Engine
	Policy policies.Policy
}

func NewService(db *gorm.DB, engine *Engine, policy policies.Policy) *Service {
	if policy == nil {
		policy = policies.RolePolicy{}
	}
	return &Service{DB: db, Engine: engine, Policy: policy}
}

type CreateInput struct {
	Name          string              `json:"name"`
	BackgroundRef string              `json:"background_ref"`
	Type          string              `json:"type"`
	Layout        domain.LayoutConfig `json:"layout_config"`
}

// ValidateLayout checks canvas bounds, element geometry and colors. Element
// kinds without a dedicated resolver are accepted and render as labels.
func ValidateLayout(l domain.LayoutConfig) error {
	if err := checkCanvas(l.CanvasWidth, l.CanvasHeight); err != nil {
		return err
	}
	for i, el := range l.Elements {
		field := fmt.Sprintf("elements[%d]", i)
		if el.X < 0 || el.Y < 0 {
			return domain.Invalid(field, "coordinates must not be negative")
		}
		if el.Width < 0 || el.Height < 0 || el.FontSize < 0 {
			return domain.Invalid(field, "sizes must not be negative")
		}
		if el.Color != "" && !hexColorRe.MatchString(el.Color) {
			return domain.Invalid(field+".color", "must be a hex color")
		}
	}
	return nil
}

func checkCanvas(w, h int) error {
	if w < 0 || h < 0 {
		return domain.Invalid("canvas", "dimensions must not be negative")
	}
	if w > MaxCanvasSide || h > MaxCanvasSide {
		return domain.Invalid("canvas", fmt.Sprintf("dimensions must not exceed %dpx", MaxCanvasSide))
	}
	return nil
}

// Render loads a certificate with everything the layout needs and resolves it.
func (s *Service) Render(ctx context.Context, actor policies.Actor, certificateID uuid.UUID) (*Document, error) {
	var c domain.Certificate
	err := s.DB.WithContext(ctx).
		Preload("Student").
		Preload("Program").
		Preload("Template").
		Where("certificate_id = ?", certificateID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !s.Policy.CanAccessOwnedBy(actor, c.IssuedBy) && (c.Student == nil || !s.Policy.CanAccessOwnedBy(actor, c.Student.UserID)) {
		return nil, domain.ErrNotFound
	}

	doc, err := s.Engine.Resolve(ctx, RenderInput{Certificate: &c, Student: c.Student, Program: c.Program, Template: c.Template})
	if err != nil {
		log.Error().Err(err).Str("certificate_no", c.CertificateNo).Msg("certificate render failed")
		return nil, err
	}
	return doc, nil
}

func (s *Service) Create(ctx context.Context, actor policies.Actor, in CreateInput) (*domain.CertificateTemplate, error) {
	if !s.Policy.CanManageCatalog(actor) {
		return nil, domain.ErrForbidden
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, domain.Invalid("name", "required")
	}
	if strings.TrimSpace(in.BackgroundRef) == "" {
		return nil, domain.Invalid("background_ref", "required")
	}
	if in.Type == "" {
		in.Type = domain.TemplateTypeStandard
	}
	if in.Type != domain.TemplateTypeStandard && in.Type != domain.TemplateTypeCard {
		return nil, domain.Invalid("type", "must be standard or card")
	}
	if err := ValidateLayout(in.Layout); err != nil {
		return nil, err
	}

	tpl := &domain.CertificateTemplate{
		Name:          in.Name,
		BackgroundRef: strings.TrimSpace(in.BackgroundRef),
		Type:          in.Type,
		LayoutConfig:  datatypes.NewJSONType(in.Layout),
		IsActive:      true,
	}
	if err := s.DB.WithContext(ctx).Create(tpl).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *Service) UpdateLayout(ctx context.Context, actor policies.Actor, templateID uuid.UUID, layout domain.LayoutConfig) (*domain.CertificateTemplate, error) {
	if !s.Policy.CanManageCatalog(actor) {
		return nil, domain.ErrForbidden
	}
	if err := ValidateLayout(layout); err != nil {
		return nil, err
	}
	tpl, err := s.find(s.DB.WithContext(ctx), templateID)
	if err != nil {
		return nil, err
	}
	tpl.LayoutConfig = datatypes.NewJSONType(layout)
	if err := s.DB.WithContext(ctx).Model(tpl).Update("layout_config", tpl.LayoutConfig).Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

// AssignDealers replaces the template's dealer scope. An empty list opens it to every dealer.
func (s *Service) AssignDealers(ctx context.Context, actor policies.Actor, templateID uuid.UUID, dealerIDs []uuid.UUID) (*domain.CertificateTemplate, error) {
	if !s.Policy.CanManageCatalog(actor) {
		return nil, domain.ErrForbidden
	}
	var tpl *domain.CertificateTemplate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tpl, err = s.find(tx, templateID)
		if err != nil {
			return err
		}
		dealers := []domain.User{}
		if len(dealerIDs) > 0 {
			if err := tx.Where("user_id IN ? AND role = ?", dealerIDs, constants.Dealer).Find(&dealers).Error; err != nil {
				return err
			}
			if len(dealers) != len(uniqueIDs(dealerIDs)) {
				return domain.Invalid("dealer_ids", "every id must reference a dealer")
			}
		}
		if err := tx.Model(tpl).Association("Dealers").Replace(dealers); err != nil {
			return err
		}
		tpl.Dealers = dealers
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tpl, nil
}

// ListAvailable returns the active templates the actor may issue with.
func (s *Service) ListAvailable(ctx context.Context, actor policies.Actor) ([]domain.CertificateTemplate, error) {
	var all []domain.CertificateTemplate
	q := s.DB.WithContext(ctx).Preload("Dealers")
	if !actor.IsAdmin() {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("name ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	out := make([]domain.CertificateTemplate, 0, len(all))
	for i := range all {
		if actor.IsAdmin() || s.Policy.CanUseTemplate(actor, &all[i]) {
			if !actor.IsAdmin() {
				all[i].Dealers = nil
			}
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (s *Service) find(db *gorm.DB, id uuid.UUID) (*domain.CertificateTemplate, error) {
	var tpl domain.CertificateTemplate
	if err := db.Where("template_id = ?", id).First(&tpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &tpl, nil
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	m := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
