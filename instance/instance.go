// SPDX-License-Identifier: MIT

package instance

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the top-level document.
type File struct {
	Name    string   `yaml:"name" validate:"required"`
	Solver  Settings `yaml:"solver"`
	Leaders []Leader `yaml:"leaders" validate:"required,min=1,dive"`
}

// Settings maps onto epec and lcp options. Zero values keep the defaults.
type Settings struct {
	Algorithm     string  `yaml:"algorithm" validate:"omitempty,oneof=inner-approximation full-enumeration combinatorial-pne"`
	Policy        string  `yaml:"policy" validate:"omitempty,oneof=most-violated-first round-robin all-leaders"`
	Recovery      string  `yaml:"recovery" validate:"omitempty,oneof=discard-last-and-retry abort"`
	RetryBudget   *int    `yaml:"retry_budget" validate:"omitempty,gte=0"`
	Workers       int     `yaml:"workers" validate:"gte=0"`
	TimeLimit     string  `yaml:"time_limit" validate:"omitempty,duration"`
	MaxIterations int     `yaml:"max_iterations" validate:"gte=0"`
	Tolerance     float64 `yaml:"tolerance" validate:"gte=0"`
	Enumerate     bool    `yaml:"enumerate"`
	Eps           float64 `yaml:"eps" validate:"gte=0"`
	BigM          float64 `yaml:"big_m" validate:"gte=0"`
}

// Leader is one leader and its follower game.
type Leader struct {
	Name              string       `yaml:"name"`
	LeaderVars        int          `yaml:"leader_vars" validate:"gte=0"`
	Followers         []Follower   `yaml:"followers" validate:"required,min=1,dive"`
	MarketClearing    *Constraints `yaml:"market_clearing"`
	LeaderConstraints *Constraints `yaml:"leader_constraints"`
	Cost              []float64    `yaml:"cost" validate:"required,min=1"`
	Interaction       [][]float64  `yaml:"interaction"`
	Coupling          [][]float64  `yaml:"coupling"`
}

// Follower is min ½yᵀQy + (c + Cx)ᵀy s.t. Ax + By ≤ b, y ≥ 0.
type Follower struct {
	Q      [][]float64 `yaml:"Q"`
	C      [][]float64 `yaml:"C"`
	A      [][]float64 `yaml:"A"`
	B      [][]float64 `yaml:"B"`
	Linear []float64   `yaml:"c" validate:"required,min=1"`
	RHS    []float64   `yaml:"b"`
}

// Constraints is a block A·v ≤ b (or = b for market clearing).
type Constraints struct {
	A   [][]float64 `yaml:"A" validate:"required,min=1"`
	RHS []float64   `yaml:"b" validate:"required,min=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})

	return v
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("instance.Load: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("instance.Load %s: %w", path, err)
	}

	return f, nil
}

// Parse decodes data strictly (unknown keys are errors) and validates it.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: yaml: %v", ErrInvalid, err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	return &f, nil
}

// describe flattens validator errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}

	return strings.Join(parts, "; ")
}
