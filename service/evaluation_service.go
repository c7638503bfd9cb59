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
)

// ErrFlagArchived means an archived flag was asked to serve a value
var ErrFlagArchived = errors.New("flag is archived")

// EvaluationService loads everything one evaluation needs and runs the
// pure engine over it. Loads go through the snapshot cache; the engine
// itself never touches storage.
type EvaluationService interface {
	EvaluateFlag(ctx context.Context, projectKey, envKey, flagKey string, evalCtx evaluation.Context) (*evaluation.Result, error)
}

type evaluationService struct {
	projectRepo repository.ProjectRepository
	envRepo     repository.EnvironmentRepository
	flagRepo    repository.FlagRepository
	segmentRepo repository.SegmentRepository
	snapshots   *cache.SnapshotCache
	logger      *logger.Logger
}

func NewEvaluationService(
	projectRepo repository.ProjectRepository,
	envRepo repository.EnvironmentRepository,
	flagRepo repository.FlagRepository,
	segmentRepo repository.SegmentRepository,
	snapshots *cache.SnapshotCache,
	log *logger.Logger,
) EvaluationService {
	return &evaluationService{
		projectRepo: projectRepo,
		envRepo:     envRepo,
		flagRepo:    flagRepo,
		segmentRepo: segmentRepo,
		snapshots:   snapshots,
		logger:      log,
	}
}

func (s *evaluationService) EvaluateFlag(ctx context.Context, projectKey, envKey, flagKey string, evalCtx evaluation.Context) (*evaluation.Result, error) {
	snapshot, err := s.loadSnapshot(ctx, projectKey, envKey, flagKey)
	if err != nil {
		return nil, err
	}

	if snapshot.Flag.IsArchived {
		return nil, ErrFlagArchived
	}

	result, err := evaluation.Evaluate(snapshot.Flag, snapshot.State, snapshot.Segments, evalCtx)
	if err != nil {
		s.logger.Errorw("Flag evaluation failed", "error", err, "flag", flagKey, "environment", envKey)
		return nil, err
	}

	s.logger.Debugw("Flag evaluated",
		"flag", flagKey,
		"environment", envKey,
		"variationID", result.VariationID,
		"reason", result.Reason,
	)
	return result, nil
}

func (s *evaluationService) loadSnapshot(ctx context.Context, projectKey, envKey, flagKey string) (*cache.Snapshot, error) {
	cacheKey := projectKey + "/" + flagKey
	if snapshot, found := s.snapshots.Get(cacheKey, envKey); found {
		return snapshot, nil
	}

	project, err := s.projectRepo.GetProjectByKey(ctx, projectKey)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	flag, err := s.flagRepo.GetFlagByKey(ctx, flagKey)
	if err != nil {
		if errors.Is(err, repository.ErrFlagNotFound) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("failed to get flag: %w", err)
	}
	if flag.ProjectID != project.ID {
		return nil, ErrFlagNotFound
	}

	env, err := s.envRepo.GetEnvironmentByKey(ctx, project.ID, envKey)
	if err != nil {
		if errors.Is(err, repository.ErrEnvironmentNotFound) {
			return nil, ErrEnvironmentNotFound
		}
		return nil, fmt.Errorf("failed to get environment: %w", err)
	}

	// A missing state row evaluates as disabled, so the lookup tolerates
	// ErrFlagStateNotFound.
	var state *entity.FlagState
	state, err = s.flagRepo.GetFlagState(ctx, flag.ID, env.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrFlagStateNotFound) {
			return nil, fmt.Errorf("failed to get flag state: %w", err)
		}
		state = nil
	}

	segments, err := s.segmentRepo.ListSegments(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	snapshot := &cache.Snapshot{Flag: flag, State: state, Segments: segments}
	s.snapshots.Set(cacheKey, envKey, snapshot)
	return snapshot, nil
}
