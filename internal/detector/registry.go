package detector

import (
	"fmt"

	"IncidentScanner/internal/cv"
	"IncidentScanner/internal/domain"
)

// Names of the weekday-aware detectors.
const (
	NameUnexpectedEmpty = "unexpected_empty"
	NameVolume          = "volume"
	NameUploadSchedule  = "upload_schedule"
	NameMissing         = "missing"
)

// Input is everything a weekday-aware detector needs for one source.
type Input struct {
	Source string
	// Records is the deduped record set of the execution day.
	Records []domain.FileRecord
	// LastWeekday is the deduped record set of the previous same weekday, if known.
	LastWeekday []domain.FileRecord
	CV          *cv.Document
	Exec        domain.ExecutionContext
	Policy      Policy
}

// Detector is one incident rule family run over a cleaned record set.
type Detector interface {
	Name() string
	Detect(in Input) domain.Partition
}

type detectorFunc struct {
	name string
	run  func(Input) domain.Partition
}

func (d detectorFunc) Name() string                     { return d.name }
func (d detectorFunc) Detect(in Input) domain.Partition { return d.run(in) }

// Registry keeps a mapping from detector names to their implementations.
type Registry struct {
	detectors map[string]Detector
	order     []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{detectors: map[string]Detector{}}
}

// DefaultRegistry registers the four weekday-aware detectors.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(detectorFunc{name: NameUnexpectedEmpty, run: func(in Input) domain.Partition {
		return DetectUnexpectedEmpty(in.Records, in.CV, in.Exec, in.Policy)
	}})
	reg.Register(detectorFunc{name: NameVolume, run: func(in Input) domain.Partition {
		return DetectVolume(in.Records, in.CV, in.Exec, in.Policy)
	}})
	reg.Register(detectorFunc{name: NameUploadSchedule, run: func(in Input) domain.Partition {
		return DetectLateUploads(in.Records, in.CV, in.Exec, in.Policy)
	}})
	reg.Register(detectorFunc{name: NameMissing, run: func(in Input) domain.Partition {
		return DetectMissing(in.Records, in.LastWeekday, in.CV, in.Exec)
	}})
	return reg
}

// Register adds or replaces a detector.
func (r *Registry) Register(d Detector) {
	if r.detectors == nil {
		r.detectors = map[string]Detector{}
	}
	if _, exists := r.detectors[d.Name()]; !exists {
		r.order = append(r.order, d.Name())
	}
	r.detectors[d.Name()] = d
}

// Resolve returns a detector by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Detector, error) {
	if d, ok := r.detectors[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("detector %s is not registered", name)
}

// Select resolves names in order; an empty list selects every detector.
func (r *Registry) Select(names []string) ([]Detector, error) {
	if len(names) == 0 {
		names = r.order
	}
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		d, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
