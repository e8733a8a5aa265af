// Package core wires the rule store, the inference engine and the blob
// storage into the batikcore service facade. All mutations run through
// the persistent store's transaction scope; all reads come from the
// committed snapshot.
package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"batikcore/internal/blob"
	"batikcore/pkg/domain"
)

// Service exposes the classification operations: rule CRUD, sample
// classification and history. It is safe for concurrent use.
type Service struct {
	store   domain.PersistentStore
	engine  *domain.Engine
	blobs   blob.Store
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// Option customizes service construction.
type Option func(*Service)

// WithLogger sets the structured logger. Nil is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Nil is ignored.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the tracer. Nil is ignored.
func WithTracer(tr Tracer) Option {
	return func(s *Service) {
		if tr != nil {
			s.tracer = tr
		}
	}
}

// WithBlobStore sets the sample-image store. Without it ClassifySample
// rejects image uploads.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) {
		s.blobs = store
	}
}

// NewService constructs a service over the given persistent store.
func NewService(store domain.PersistentStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("new service: store is nil")
	}
	s := &Service{
		store:   store,
		engine:  domain.NewEngine(store),
		logger:  zap.NewNop(),
		metrics: nopMetricsRecorder{},
		tracer:  nopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// observe wraps one operation with tracing, metrics and logging.
func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := s.nowFn()
	err := fn(ctx)
	duration := s.nowFn().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.logger.Warn("operation failed",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		s.logger.Debug("operation completed",
			zap.String("operation", operation),
			zap.Duration("duration", duration))
	}
	return err
}

// AddRule validates the draft and stores it as a new rule. The assigned
// insertion sequence fixes its position among rules of equal priority.
func (s *Service) AddRule(ctx context.Context, draft domain.RuleDraft) (domain.Rule, error) {
	var created domain.Rule
	err := s.observe(ctx, "add_rule", func(ctx context.Context) error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			rule, err := tx.CreateRule(draft)
			if err != nil {
				return err
			}
			created = rule
			return nil
		})
	})
	if err != nil {
		return domain.Rule{}, err
	}
	s.logger.Info("rule added",
		zap.String("rule_id", created.ID),
		zap.String("goal", string(created.Type)),
		zap.Int64("priority", created.Priority))
	return created, nil
}

// UpdateRule applies a partial update to an existing rule. Identity,
// insertion sequence and creation time are preserved.
func (s *Service) UpdateRule(ctx context.Context, id string, patch domain.RulePatch) (domain.Rule, error) {
	var updated domain.Rule
	err := s.observe(ctx, "update_rule", func(ctx context.Context) error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			rule, err := tx.UpdateRule(id, patch)
			if err != nil {
				return err
			}
			updated = rule
			return nil
		})
	})
	if err != nil {
		return domain.Rule{}, err
	}
	s.logger.Info("rule updated", zap.String("rule_id", updated.ID))
	return updated, nil
}

// RemoveRule deletes a rule by identifier.
func (s *Service) RemoveRule(ctx context.Context, id string) error {
	err := s.observe(ctx, "remove_rule", func(ctx context.Context) error {
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteRule(id)
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("rule removed", zap.String("rule_id", id))
	return nil
}

// Rule returns a single rule by identifier.
func (s *Service) Rule(ctx context.Context, id string) (domain.Rule, error) {
	var rule domain.Rule
	err := s.observe(ctx, "get_rule", func(context.Context) error {
		found, ok := s.store.GetRule(id)
		if !ok {
			return domain.NotFoundError{ID: id}
		}
		rule = found
		return nil
	})
	return rule, err
}

// Rules returns the stored rules for one goal type in evaluation order,
// or all rules when goal is empty.
func (s *Service) Rules(ctx context.Context, goal GoalFilter) ([]domain.Rule, error) {
	var rules []domain.Rule
	err := s.observe(ctx, "list_rules", func(context.Context) error {
		if goal == "" {
			rules = s.store.ListRules()
			return nil
		}
		parsed, err := domain.ParseGoalType(string(goal))
		if err != nil {
			return err
		}
		rules = s.store.RulesByGoal(parsed)
		return nil
	})
	return rules, err
}

// GoalFilter selects a goal type for listings; empty means all goals.
type GoalFilter string

// Classify evaluates a single goal against the fact set without
// recording history. A no-match result is returned with a nil error.
func (s *Service) Classify(ctx context.Context, goal domain.GoalType, facts domain.FactSet) (domain.ClassificationResult, error) {
	var result domain.ClassificationResult
	err := s.observe(ctx, "classify", func(context.Context) error {
		r, err := s.engine.Classify(goal, facts)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// SampleInput is the payload for ClassifySample: the observed facts plus
// optional sample metadata and image.
type SampleInput struct {
	Facts     domain.FactSet
	MotifName string
	ImageName string
	Image     io.Reader
}

var allowedImageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ClassifySample evaluates both goal types against the supplied facts,
// stores the optional sample image and appends the combined outcome to
// the classification history. The two evaluations are independent:
// either may report no match while the other concludes.
func (s *Service) ClassifySample(ctx context.Context, input SampleInput) (domain.ClassificationRecord, error) {
	var record domain.ClassificationRecord
	err := s.observe(ctx, "classify_sample", func(ctx context.Context) error {
		technique, err := s.engine.Classify(domain.GoalTechnique, input.Facts)
		if err != nil {
			return err
		}
		quality, err := s.engine.Classify(domain.GoalQuality, input.Facts)
		if err != nil {
			return err
		}

		imageKey := ""
		if input.Image != nil {
			key, err := s.storeSampleImage(ctx, input.ImageName, input.Image)
			if err != nil {
				return err
			}
			imageKey = key
		}

		record = domain.ClassificationRecord{
			Facts:     input.Facts.Clone(),
			MotifName: input.MotifName,
			ImageKey:  imageKey,
			Technique: technique,
			Quality:   quality,
		}
		return s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			stored, err := tx.AppendRecord(record)
			if err != nil {
				return err
			}
			record = stored
			return nil
		})
	})
	if err != nil {
		return domain.ClassificationRecord{}, err
	}
	s.logger.Info("sample classified",
		zap.String("record_id", record.ID),
		zap.Bool("technique_matched", record.Technique.Matched),
		zap.Bool("quality_matched", record.Quality.Matched))
	return record, nil
}

func (s *Service) storeSampleImage(ctx context.Context, name string, r io.Reader) (string, error) {
	if s.blobs == nil {
		return "", domain.ValidationError{Field: "image", Reason: "image storage is not configured"}
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	contentType, ok := allowedImageExtensions[ext]
	if !ok {
		return "", domain.ValidationError{Field: "image", Reason: fmt.Sprintf("unsupported image extension %q", ext)}
	}
	key := path.Join("samples", uuid.NewString(), base)
	if _, err := s.blobs.Put(ctx, key, r, blob.PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("store sample image: %w", err)
	}
	return key, nil
}

// SampleImage retrieves a stored sample image by key.
func (s *Service) SampleImage(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	if s.blobs == nil {
		return blob.Info{}, nil, domain.ValidationError{Field: "image", Reason: "image storage is not configured"}
	}
	return s.blobs.Get(ctx, key)
}

// History returns stored classification records, newest first. A limit
// of zero or less returns all records.
func (s *Service) History(ctx context.Context, limit int) ([]domain.ClassificationRecord, error) {
	var records []domain.ClassificationRecord
	err := s.observe(ctx, "history", func(context.Context) error {
		records = s.store.ListRecords()
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
		return nil
	})
	return records, err
}

// Characteristics returns the advisory characteristic vocabulary.
func (s *Service) Characteristics() []domain.Characteristic {
	return domain.Characteristics()
}
