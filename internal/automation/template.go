package automation

import (
	"fmt"
	"sync"

	"github.com/osteele/liquid"
)

// Renderer compila templates liquid ({{nome}}) com cache por texto.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

func (r *Renderer) Render(tpl string, vars map[string]any) (string, error) {
	if tpl == "" {
		return "", nil
	}

	var compiled *liquid.Template
	if cached, ok := r.cache.Load(tpl); ok {
		compiled = cached.(*liquid.Template)
	} else {
		t, err := r.engine.ParseString(tpl)
		if err != nil {
			return tpl, fmt.Errorf("template inválido: %w", err)
		}
		r.cache.Store(tpl, t)
		compiled = t
	}

	out, err := compiled.RenderString(vars)
	if err != nil {
		return tpl, fmt.Errorf("erro ao renderizar template: %w", err)
	}
	return out, nil
}
