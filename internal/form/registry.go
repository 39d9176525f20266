package form

import (
	"sync"

	"formflow/internal/form/models"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

// Registry holds the form definitions this process can serve. Definitions are
// registered at startup and validated on the way in, so a broken definition
// fails boot instead of a respondent's session.
type Registry struct {
	mu   sync.RWMutex
	defs map[id.FormType]models.FormDefinition
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[id.FormType]models.FormDefinition)}
}

func (r *Registry) Register(def models.FormDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Type]; exists {
		return domainerrors.New(domainerrors.CodeConflict, "form type already registered: "+def.Type.String())
	}
	r.defs[def.Type] = def
	return nil
}

func (r *Registry) Lookup(formType id.FormType) (models.FormDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[formType]
	if !ok {
		return models.FormDefinition{}, domainerrors.New(domainerrors.CodeNotFound, "unknown form type: "+formType.String())
	}
	return def, nil
}

// Types lists registered form types, for the discovery endpoint.
func (r *Registry) Types() []id.FormType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]id.FormType, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	return out
}
