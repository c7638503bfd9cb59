package service

import (
	"context"
	"errors"
	"fmt"

	"flagbase/cache"
	"flagbase/entity"
	"flagbase/evaluation"
	"flagbase/pkg/logger"
	"flagbase/repository"
	"flagbase/validator"

	"github.com/google/uuid"
)

var (
	ErrFlagNotFound        = errors.New("flag not found")
	ErrFlagAlreadyExists   = errors.New("flag already exists")
	ErrFlagStateNotFound   = errors.New("flag state not found")
	ErrVariationNotFound   = errors.New("variation not found")
	ErrCanonicalVariation  = errors.New("canonical boolean variations cannot be deleted")
	ErrVariationInUse      = errors.New("variation is referenced by targeting rules")
	ErrUnknownVariationRef = errors.New("targeting references an unknown variation")
	ErrSegmentNotInProject = errors.New("targeting references a segment outside the project")
)

// FlagService defines the interface for feature flag business logic,
// covering the flag itself, its variations and its per-environment state
type FlagService interface {
	CreateFlag(ctx context.Context, projectKey string, req validator.FlagCreateRequest, actor string) (*entity.FeatureFlag, error)
	GetFlag(ctx context.Context, flagKey string) (*entity.FeatureFlag, error)
	ListFlags(ctx context.Context, projectKey string, includeArchived bool) ([]*entity.FeatureFlag, error)
	UpdateFlag(ctx context.Context, flagKey string, req validator.FlagUpdateRequest, actor string) (*entity.FeatureFlag, error)
	SetArchived(ctx context.Context, flagKey string, archived bool, actor string) error
	DeleteFlag(ctx context.Context, flagKey, actor string) error

	AddVariation(ctx context.Context, flagKey string, req validator.VariationRequest, actor string) (*entity.FeatureFlag, error)
	UpdateVariation(ctx context.Context, flagKey, variationID string, req validator.VariationRequest, actor string) (*entity.FeatureFlag, error)
	DeleteVariation(ctx context.Context, flagKey, variationID, actor string) (*entity.FeatureFlag, error)

	GetFlagState(ctx context.Context, projectKey, flagKey, envKey string) (*entity.FlagState, error)
	UpdateFlagState(ctx context.Context, projectKey, flagKey, envKey string, req validator.FlagStateUpdateRequest, actor string) (*entity.FlagState, error)
}

type flagService struct {
	projectRepo repository.ProjectRepository
	envRepo     repository.EnvironmentRepository
	flagRepo    repository.FlagRepository
	segmentRepo repository.SegmentRepository
	auditRepo   repository.AuditRepository
	snapshots   *cache.SnapshotCache
	logger      *logger.Logger
}

func NewFlagService(
	projectRepo repository.ProjectRepository,
	envRepo repository.EnvironmentRepository,
	flagRepo repository.FlagRepository,
	segmentRepo repository.SegmentRepository,
	auditRepo repository.AuditRepository,
	snapshots *cache.SnapshotCache,
	log *logger.Logger,
) FlagService {
	return &flagService{
		projectRepo: projectRepo,
		envRepo:     envRepo,
		flagRepo:    flagRepo,
		segmentRepo: segmentRepo,
		auditRepo:   auditRepo,
		snapshots:   snapshots,
		logger:      log,
	}
}

func (s *flagService) CreateFlag(ctx context.Context, projectKey string, req validator.FlagCreateRequest, actor string) (*entity.FeatureFlag, error) {
	if err := validator.ValidateFlagCreateRequest(req); err != nil {
		s.logger.Warnw("Invalid flag creation request", "error", err, "actor", actor)
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetProjectByKey(ctx, projectKey)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	flagType := entity.FlagType(req.Type)
	if flagType == "" {
		flagType = entity.FlagTypeBoolean
	}

	defaultValue := req.DefaultValue
	if defaultValue == "" && flagType == entity.FlagTypeBoolean {
		defaultValue = entity.BooleanVariationFalseValue
	}
	if defaultValue != "" {
		if err := evaluation.ValidateValue(flagType, defaultValue); err != nil {
			return nil, err
		}
	}

	variations := make(entity.Variations, 0, len(req.Variations)+2)
	if flagType == entity.FlagTypeBoolean {
		variations = append(variations,
			entity.Variation{ID: uuid.NewString(), Name: entity.BooleanVariationTrueName, Value: entity.BooleanVariationTrueValue},
			entity.Variation{ID: uuid.NewString(), Name: entity.BooleanVariationFalseName, Value: entity.BooleanVariationFalseValue},
		)
	}
	for _, varReq := range req.Variations {
		variation := varReq.ToEntity()
		variationType := variation.Type
		if variationType == "" {
			variationType = flagType
		}
		if err := evaluation.ValidateValue(variationType, variation.Value); err != nil {
			return nil, err
		}
		variations = append(variations, variation)
	}

	flag := &entity.FeatureFlag{
		ProjectID:    project.ID,
		Key:          req.Key,
		Name:         req.Name,
		Description:  req.Description,
		Type:         flagType,
		DefaultValue: defaultValue,
		Variations:   variations,
	}

	flagID, err := s.flagRepo.CreateFlag(ctx, flag)
	if err != nil {
		if errors.Is(err, repository.ErrFlagAlreadyExists) {
			return nil, ErrFlagAlreadyExists
		}
		s.logger.Errorw("Failed to create flag", "error", err, "key", req.Key)
		return nil, fmt.Errorf("failed to create flag: %w", err)
	}
	flag.ID = flagID

	// One disabled state per existing environment of the project
	envs, err := s.envRepo.ListEnvironments(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments for flag states: %w", err)
	}
	for _, env := range envs {
		state := &entity.FlagState{
			FlagID:        flagID,
			EnvironmentID: env.ID,
			IsEnabled:     false,
		}
		if _, err := s.flagRepo.CreateFlagState(ctx, state); err != nil {
			s.logger.Errorw("Failed to create flag state", "error", err, "flagID", flagID, "environmentID", env.ID)
			return nil, fmt.Errorf("failed to create flag state: %w", err)
		}
	}

	auditLog := entity.NewAuditLog(entity.EntityFlag, flagID, entity.ActionCreate, actor,
		entity.AuditPayload{"key": req.Key, "type": string(flagType)})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flagID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Flag created successfully", "flagID", flagID, "key", req.Key, "type", flagType, "actor", actor)
	return flag, nil
}

func (s *flagService) GetFlag(ctx context.Context, flagKey string) (*entity.FeatureFlag, error) {
	flag, err := s.flagRepo.GetFlagByKey(ctx, flagKey)
	if err != nil {
		if errors.Is(err, repository.ErrFlagNotFound) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}
	return flag, nil
}

func (s *flagService) ListFlags(ctx context.Context, projectKey string, includeArchived bool) ([]*entity.FeatureFlag, error) {
	project, err := s.projectRepo.GetProjectByKey(ctx, projectKey)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	flags, err := s.flagRepo.ListFlags(ctx, project.ID, includeArchived)
	if err != nil {
		s.logger.Errorw("Failed to list flags", "error", err, "projectID", project.ID)
		return nil, fmt.Errorf("failed to list flags: %w", err)
	}
	return flags, nil
}

func (s *flagService) UpdateFlag(ctx context.Context, flagKey string, req validator.FlagUpdateRequest, actor string) (*entity.FeatureFlag, error) {
	if err := validator.ValidateFlagUpdateRequest(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	flag, err := s.GetFlag(ctx, flagKey)
	if err != nil {
		return nil, err
	}

	if req.DefaultValue != "" {
		if err := evaluation.ValidateValue(flag.Type, req.DefaultValue); err != nil {
			return nil, err
		}
		flag.DefaultValue = req.DefaultValue
	}
	flag.Name = req.Name
	flag.Description = req.Description

	if err := s.flagRepo.UpdateFlag(ctx, flag); err != nil {
		if errors.Is(err, repository.ErrFlagNotFound) {
			return nil, ErrFlagNotFound
		}
		s.logger.Errorw("Failed to update flag", "error", err, "flagID", flag.ID)
		return nil, fmt.Errorf("failed to update flag: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityFlag, flag.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"name": req.Name})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flag.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Flag updated successfully", "flagID", flag.ID, "actor", actor)
	return flag, nil
}

func (s *flagService) SetArchived(ctx context.Context, flagKey string, archived bool, actor string) error {
	if err := validator.ValidateActor(actor); err != nil {
		return err
	}

	flag, err := s.GetFlag(ctx, flagKey)
	if err != nil {
		return err
	}

	if flag.IsArchived == archived {
		return nil // Already in the requested state, no-op
	}

	if err := s.flagRepo.SetArchived(ctx, flag.ID, archived); err != nil {
		if errors.Is(err, repository.ErrFlagNotFound) {
			return ErrFlagNotFound
		}
		s.logger.Errorw("Failed to update flag archive state", "error", err, "flagID", flag.ID)
		return fmt.Errorf("failed to update flag archive state: %w", err)
	}

	action := entity.ActionArchive
	if !archived {
		action = entity.ActionUnarchive
	}
	auditLog := entity.NewAuditLog(entity.EntityFlag, flag.ID, action, actor, nil)
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flag.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Flag archive state updated", "flagID", flag.ID, "archived", archived, "actor", actor)
	return nil
}

func (s *flagService) DeleteFlag(ctx context.Context, flagKey, actor string) error {
	if err := validator.ValidateActor(actor); err != nil {
		return err
	}

	flag, err := s.GetFlag(ctx, flagKey)
	if err != nil {
		return err
	}

	if err := s.flagRepo.DeleteFlag(ctx, flag.ID); err != nil {
		if errors.Is(err, repository.ErrFlagNotFound) {
			return ErrFlagNotFound
		}
		s.logger.Errorw("Failed to delete flag", "error", err, "flagID", flag.ID)
		return fmt.Errorf("failed to delete flag: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityFlag, flag.ID, entity.ActionDelete, actor,
		entity.AuditPayload{"key": flagKey})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flag.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Flag deleted successfully", "flagID", flag.ID, "key", flagKey, "actor", actor)
	return nil
}

func (s *flagService) AddVariation(ctx context.Context, flagKey string, req validator.VariationRequest, actor string) (*entity.FeatureFlag, error) {
	if err := validator.ValidateVariationRequest(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	flag, err := s.GetFlag(ctx, flagKey)
	if err != nil {
		return nil, err
	}

	variation := req.ToEntity()
	variationType := variation.Type
	if variationType == "" {
		variationType = flag.Type
	}
	if err := evaluation.ValidateValue(variationType, variation.Value); err != nil {
		return nil, err
	}

	flag.Variations = append(flag.Variations, variation)
	if err := s.flagRepo.UpdateFlag(ctx, flag); err != nil {
		s.logger.Errorw("Failed to add variation", "error", err, "flagID", flag.ID)
		return nil, fmt.Errorf("failed to add variation: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityFlag, flag.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"variation_added": variation.ID, "name": variation.Name})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flag.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Variation added", "flagID", flag.ID, "variationID", variation.ID, "actor", actor)
	return flag, nil
}

func (s *flagService) UpdateVariation(ctx context.Context, flagKey, variationID string, req validator.VariationRequest, actor string) (*entity.FeatureFlag, error) {
	if err := validator.ValidateVariationRequest(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	flag, err := s.GetFlag(ctx, flagKey)
	if err != nil {
		return nil, err
	}

	variation := flag.VariationByID(variationID)
	if variation == nil {
		return nil, ErrVariationNotFound
	}

	// The canonical boolean pair must keep its name/value identity
	if flag.Type == entity.FlagTypeBoolean && variation.IsCanonicalBoolean() {
		candidate := entity.Variation{Name: req.Name, Value: req.Value}
		if !candidate.IsCanonicalBoolean() {
			return nil, ErrCanonicalVariation
		}
	}

	variationType := entity.FlagType(req.Type)
	if variationType == "" {
		variationType = flag.Type
	}
	if err := evaluation.ValidateValue(variationType, req.Value); err != nil {
		return nil, err
	}

	variation.Name = req.Name
	variation.Value = req.Value
	variation.Type = entity.FlagType(req.Type)

	if err := s.flagRepo.UpdateFlag(ctx, flag); err != nil {
		s.logger.Errorw("Failed to update variation", "error", err, "flagID", flag.ID)
		return nil, fmt.Errorf("failed to update variation: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityFlag, flag.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"variation_updated": variationID})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flag.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Variation updated", "flagID", flag.ID, "variationID", variationID, "actor", actor)
	return flag, nil
}

func (s *flagService) DeleteVariation(ctx context.Context, flagKey, variationID, actor string) (*entity.FeatureFlag, error) {
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	flag, err := s.GetFlag(ctx, flagKey)
	if err != nil {
		return nil, err
	}

	variation := flag.VariationByID(variationID)
	if variation == nil {
		return nil, ErrVariationNotFound
	}

	if flag.Type == entity.FlagTypeBoolean && variation.IsCanonicalBoolean() {
		s.logger.Warnw("Rejected deletion of canonical boolean variation", "flagID", flag.ID, "variationID", variationID, "actor", actor)
		return nil, ErrCanonicalVariation
	}

	inUse, err := s.variationReferenced(ctx, flag, variationID)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, ErrVariationInUse
	}

	kept := make(entity.Variations, 0, len(flag.Variations)-1)
	for _, v := range flag.Variations {
		if v.ID != variationID {
			kept = append(kept, v)
		}
	}
	flag.Variations = kept

	if err := s.flagRepo.UpdateFlag(ctx, flag); err != nil {
		s.logger.Errorw("Failed to delete variation", "error", err, "flagID", flag.ID)
		return nil, fmt.Errorf("failed to delete variation: %w", err)
	}

	auditLog := entity.NewAuditLog(entity.EntityFlag, flag.ID, entity.ActionUpdate, actor,
		entity.AuditPayload{"variation_deleted": variationID})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagID", flag.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Variation deleted", "flagID", flag.ID, "variationID", variationID, "actor", actor)
	return flag, nil
}

func (s *flagService) GetFlagState(ctx context.Context, projectKey, flagKey, envKey string) (*entity.FlagState, error) {
	flag, env, err := s.resolveFlagEnvironment(ctx, projectKey, flagKey, envKey)
	if err != nil {
		return nil, err
	}

	state, err := s.flagRepo.GetFlagState(ctx, flag.ID, env.ID)
	if err != nil {
		if errors.Is(err, repository.ErrFlagStateNotFound) {
			return nil, ErrFlagStateNotFound
		}
		return nil, fmt.Errorf("failed to get flag state: %w", err)
	}
	return state, nil
}

func (s *flagService) UpdateFlagState(ctx context.Context, projectKey, flagKey, envKey string, req validator.FlagStateUpdateRequest, actor string) (*entity.FlagState, error) {
	if err := validator.ValidateFlagStateUpdateRequest(req); err != nil {
		return nil, err
	}
	if err := validator.ValidateActor(actor); err != nil {
		return nil, err
	}

	flag, env, err := s.resolveFlagEnvironment(ctx, projectKey, flagKey, envKey)
	if err != nil {
		return nil, err
	}

	targeting := req.Targeting.ToEntity()
	if err := s.validateTargeting(ctx, flag, targeting); err != nil {
		return nil, err
	}

	state, err := s.flagRepo.GetFlagState(ctx, flag.ID, env.ID)
	if err != nil {
		if errors.Is(err, repository.ErrFlagStateNotFound) {
			return nil, ErrFlagStateNotFound
		}
		return nil, fmt.Errorf("failed to get flag state: %w", err)
	}

	wasEnabled := state.IsEnabled
	state.IsEnabled = req.IsEnabled
	state.Rules = entity.FlagRules{Targeting: targeting}

	if err := s.flagRepo.UpdateFlagState(ctx, state); err != nil {
		s.logger.Errorw("Failed to update flag state", "error", err, "flagID", flag.ID, "environmentID", env.ID)
		return nil, fmt.Errorf("failed to update flag state: %w", err)
	}

	action := entity.ActionUpdate
	if req.IsEnabled && !wasEnabled {
		action = entity.ActionEnable
	} else if !req.IsEnabled && wasEnabled {
		action = entity.ActionDisable
	}
	auditLog := entity.NewAuditLog(entity.EntityFlagState, state.ID, action, actor,
		entity.AuditPayload{"flag": flagKey, "environment": envKey, "is_enabled": req.IsEnabled})
	if err := s.auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
		s.logger.Warnw("Failed to create audit log", "error", err, "flagStateID", state.ID)
	}

	s.snapshots.Invalidate()

	s.logger.Infow("Flag state updated", "flagID", flag.ID, "environmentID", env.ID, "isEnabled", req.IsEnabled, "actor", actor)
	return state, nil
}

// variationReferenced reports whether any flag state's targeting document
// still points at the variation
func (s *flagService) variationReferenced(ctx context.Context, flag *entity.FeatureFlag, variationID string) (bool, error) {
	states, err := s.flagRepo.ListFlagStates(ctx, flag.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list flag states: %w", err)
	}

	for _, state := range states {
		targeting := state.Rules.Targeting
		if targeting.DefaultVariationID == variationID || targeting.OffVariationID == variationID {
			return true, nil
		}
		for _, override := range targeting.Individual {
			if override.VariationID == variationID {
				return true, nil
			}
		}
		for _, segment := range targeting.Segments {
			if segment.VariationID == variationID {
				return true, nil
			}
		}
		for _, rule := range targeting.Rules {
			if rule.VariationID == variationID {
				return true, nil
			}
		}
	}
	return false, nil
}

// validateTargeting rejects write-time references to variations the flag
// doesn't have or segments outside the flag's project. Read-time
// evaluation still tolerates dangling references that appear later.
func (s *flagService) validateTargeting(ctx context.Context, flag *entity.FeatureFlag, targeting entity.Targeting) error {
	checkVariation := func(id string) error {
		if id != "" && flag.VariationByID(id) == nil {
			return fmt.Errorf("%w: %s", ErrUnknownVariationRef, id)
		}
		return nil
	}

	if err := checkVariation(targeting.DefaultVariationID); err != nil {
		return err
	}
	if err := checkVariation(targeting.OffVariationID); err != nil {
		return err
	}
	for _, override := range targeting.Individual {
		if err := checkVariation(override.VariationID); err != nil {
			return err
		}
	}
	for _, rule := range targeting.Rules {
		if err := checkVariation(rule.VariationID); err != nil {
			return err
		}
	}
	for _, segmentRule := range targeting.Segments {
		if err := checkVariation(segmentRule.VariationID); err != nil {
			return err
		}
		segment, err := s.segmentRepo.GetSegmentByID(ctx, segmentRule.SegmentID)
		if err != nil {
			if errors.Is(err, repository.ErrSegmentNotFound) {
				return fmt.Errorf("%w: segment %d", ErrSegmentNotInProject, segmentRule.SegmentID)
			}
			return fmt.Errorf("failed to check segment reference: %w", err)
		}
		if segment.ProjectID != flag.ProjectID {
			return fmt.Errorf("%w: segment %d", ErrSegmentNotInProject, segmentRule.SegmentID)
		}
	}
	return nil
}

func (s *flagService) resolveFlagEnvironment(ctx context.Context, projectKey, flagKey, envKey string) (*entity.FeatureFlag, *entity.Environment, error) {
	project, err := s.projectRepo.GetProjectByKey(ctx, projectKey)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to get project: %w", err)
	}

	flag, err := s.GetFlag(ctx, flagKey)
	if err != nil {
		return nil, nil, err
	}
	if flag.ProjectID != project.ID {
		return nil, nil, ErrFlagNotFound
	}

	env, err := s.envRepo.GetEnvironmentByKey(ctx, project.ID, envKey)
	if err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return nil, nil, ErrEnvironmentNotFound
		}
		return nil, nil, fmt.Errorf("failed to get environment: %w", err)
	}

	return flag, env, nil
}
