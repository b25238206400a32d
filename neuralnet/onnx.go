// Package neuralnet runs policy/value models for guided tree search.
package neuralnet

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/owulveryck/onnx-go"
	"github.com/owulveryck/onnx-go/backend/x/gorgonnx"
	"github.com/rs/zerolog/log"
	"gorgonia.org/tensor"

	"github.com/domino14/htmf/cache"
	"github.com/domino14/htmf/config"
	"github.com/domino14/htmf/game"
	"github.com/domino14/htmf/mcts"
)

// model is one runnable copy of an ONNX graph. A gorgonnx graph holds its
// inputs and outputs as state, so a model serves one inference at a time.
type model struct {
	backend *gorgonnx.Graph
	model   *onnx.Model
}

// modelTemplate holds the raw ONNX bytes that models are built from.
type modelTemplate struct {
	name string
	data []byte
}

func (t *modelTemplate) newInstance() (*model, error) {
	start := time.Now()
	backend := gorgonnx.NewGraph()
	m := onnx.NewModel(backend)
	if err := m.UnmarshalBinary(t.data); err != nil {
		return nil, fmt.Errorf("unmarshal onnx model %s: %w", t.name, err)
	}
	log.Debug().Str("model", t.name).Int64("init-ms", time.Since(start).Milliseconds()).
		Msg("onnx-model-instance-created")
	return &model{backend: backend, model: m}, nil
}

// run feeds one feature vector through the model.
func (m *model) run(features []float32) ([]tensor.Tensor, error) {
	input := tensor.New(tensor.WithShape(1, len(features)), tensor.WithBacking(features))
	if err := m.model.SetInput(0, input); err != nil {
		return nil, fmt.Errorf("set onnx input: %w", err)
	}
	if err := m.backend.Run(); err != nil {
		return nil, fmt.Errorf("run onnx model: %w", err)
	}
	out, err := m.model.GetOutputTensors()
	if err != nil {
		return nil, fmt.Errorf("get onnx outputs: %w", err)
	}
	return out, nil
}

// modelPool hands out instances of one template.
type modelPool struct {
	template *modelTemplate
	pool     sync.Pool
}

func newModelPool(t *modelTemplate) (*modelPool, error) {
	// Build one instance up front so that a corrupt file fails here rather
	// than on the first search.
	first, err := t.newInstance()
	if err != nil {
		return nil, err
	}
	p := &modelPool{template: t}
	p.pool.Put(first)
	return p, nil
}

func (p *modelPool) get() (*model, error) {
	if m, ok := p.pool.Get().(*model); ok {
		return m, nil
	}
	return p.template.newInstance()
}

func (p *modelPool) put(m *model) {
	p.pool.Put(m)
}

// ONNXOracle predicts with one model for drafting and another for movement.
// Both take a [1, 480] feature tensor and produce policy logits followed by
// the value for the player to move. It is safe for concurrent use.
type ONNXOracle struct {
	drafting *modelPool
	movement *modelPool
}

var _ mcts.Oracle = (*ONNXOracle)(nil)

// NewONNXOracle builds an oracle from serialized ONNX models.
func NewONNXOracle(draftingModel, movementModel []byte) (*ONNXOracle, error) {
	return newONNXOracle(
		&modelTemplate{name: "drafting", data: draftingModel},
		&modelTemplate{name: "movement", data: movementModel})
}

func newONNXOracle(drafting, movement *modelTemplate) (*ONNXOracle, error) {
	dp, err := newModelPool(drafting)
	if err != nil {
		return nil, err
	}
	mp, err := newModelPool(movement)
	if err != nil {
		return nil, err
	}
	return &ONNXOracle{drafting: dp, movement: mp}, nil
}

const cacheKeyPrefix = "onnx:"

// modelLoadFunc reads a model file named by an "onnx:<path>" cache key.
func modelLoadFunc(cfg *config.Config, key string) (any, error) {
	path, ok := strings.CutPrefix(key, cacheKeyPrefix)
	if !ok || path == "" {
		return nil, errors.New("bad onnx cache key: " + key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read onnx model: %w", err)
	}
	log.Debug().Str("path", path).Int("model-size", len(data)).Msg("loaded-onnx-model")
	return &modelTemplate{name: path, data: data}, nil
}

func loadTemplate(cfg *config.Config, path string) (*modelTemplate, error) {
	obj, err := cache.Load(cfg, cacheKeyPrefix+path, modelLoadFunc)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*modelTemplate)
	if !ok {
		return nil, fmt.Errorf("cached object for %s is %T, not a model", path, obj)
	}
	return t, nil
}

// LoadONNXOracle loads the models named in cfg. Model files are read once per
// process and shared between oracles.
func LoadONNXOracle(cfg *config.Config) (*ONNXOracle, error) {
	draftingPath := cfg.GetString(config.ConfigDraftingModelPath)
	movementPath := cfg.GetString(config.ConfigMovementModelPath)
	if draftingPath == "" || movementPath == "" {
		return nil, fmt.Errorf("both %s and %s must be set",
			config.ConfigDraftingModelPath, config.ConfigMovementModelPath)
	}
	drafting, err := loadTemplate(cfg, draftingPath)
	if err != nil {
		return nil, err
	}
	movement, err := loadTemplate(cfg, movementPath)
	if err != nil {
		return nil, err
	}
	return newONNXOracle(drafting, movement)
}

// Predict runs the model for the position's phase.
func (o *ONNXOracle) Predict(g *game.State, player int) (*mcts.Prediction, error) {
	pool := o.movement
	if !g.FinishedDrafting() {
		pool = o.drafting
	}
	m, err := pool.get()
	if err != nil {
		return nil, err
	}
	out, err := m.run(g.Features(player))
	if err != nil {
		// the graph may be left half-run; do not return it to the pool
		return nil, fmt.Errorf("%s model: %w", pool.template.name, err)
	}
	pool.put(m)
	return decodeOutputs(out, g.PolicySize())
}

// decodeOutputs reads the policy logits from the first output and the value
// from the second.
func decodeOutputs(out []tensor.Tensor, policySize int) (*mcts.Prediction, error) {
	if len(out) < 2 {
		return nil, fmt.Errorf("expected policy and value outputs, got %d", len(out))
	}
	var logits []float32
	switch v := out[0].Data().(type) {
	case []float32:
		logits = v
	default:
		return nil, fmt.Errorf("unexpected policy output type: %T", v)
	}
	if len(logits) < policySize {
		return nil, fmt.Errorf("policy output has %d logits, need %d", len(logits), policySize)
	}
	var value float32
	switch v := out[1].Data().(type) {
	case float32:
		value = v
	case []float32:
		if len(v) == 0 {
			return nil, errors.New("empty value output")
		}
		value = v[0]
	default:
		return nil, fmt.Errorf("unexpected value output type: %T", v)
	}
	// copy out of the graph's buffers, which the next run overwrites
	return &mcts.Prediction{
		PolicyLogits: append([]float32(nil), logits[:policySize]...),
		Value:        value,
	}, nil
}
