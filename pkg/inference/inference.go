/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: inference.go
Description: Entry point for schema inference. Provides the InferenceEngine interface and
the engines that turn captured protobuf payloads into schema text: structural inference
with synthesized names, descriptor recovery with real names, and an auto mode that picks
between them per corpus.
*/

package inference

import (
	"errors"
	"fmt"

	"github.com/kleascm/protodec/pkg/wire"
)

// Engine modes accepted by NewEngine.
const (
	ModeAuto       = "auto"
	ModeStructural = "structural"
	ModeDescriptor = "descriptor"
)

var (
	ErrNoSamples     = errors.New("inference: no samples provided")
	ErrNotDescriptor = errors.New("inference: sample is not a serialized FileDescriptorProto")
)

// InferenceEngine defines the interface for schema inference engines.
type InferenceEngine interface {
	InferStructure(samples [][]byte) (*Schema, error)
	Format() string
}

// NewEngine returns the engine for mode, or nil if the mode is unknown. pkg
// names the package of synthesized schemas; empty means DefaultPackage.
func NewEngine(mode, pkg string) InferenceEngine {
	switch mode {
	case ModeStructural:
		return NewStructuralEngine(pkg)
	case ModeDescriptor:
		return NewDescriptorEngine()
	case ModeAuto, "":
		return NewAutoEngine(pkg)
	default:
		return nil
	}
}

// StructuralEngine treats every sample as one instance of a single top-level
// message and synthesizes placeholder names.
type StructuralEngine struct {
	Package string
}

func NewStructuralEngine(pkg string) *StructuralEngine {
	if pkg == "" {
		pkg = DefaultPackage
	}
	return &StructuralEngine{Package: pkg}
}

func (e *StructuralEngine) Format() string { return ModeStructural }

func (e *StructuralEngine) InferStructure(samples [][]byte) (*Schema, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	trees := make([]*wire.Tree, 0, len(samples))
	for i, s := range samples {
		t, err := wire.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		trees = append(trees, t)
	}
	return InferSchema(e.Package, trees), nil
}

// DescriptorEngine recovers real schemas from serialized descriptors.
type DescriptorEngine struct{}

func NewDescriptorEngine() *DescriptorEngine { return &DescriptorEngine{} }

func (e *DescriptorEngine) Format() string { return ModeDescriptor }

func (e *DescriptorEngine) InferStructure(samples [][]byte) (*Schema, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	s := &Schema{}
	for i, b := range samples {
		files, ok := DecodeDescriptors(b)
		if !ok {
			return nil, fmt.Errorf("sample %d: %w", i, ErrNotDescriptor)
		}
		for _, fd := range files {
			s.Files = append(s.Files, FileFromDescriptor(fd))
		}
	}
	return s, nil
}

// AutoEngine uses descriptor recovery when every sample is a descriptor and
// structural inference otherwise.
type AutoEngine struct {
	structural *StructuralEngine
	descriptor *DescriptorEngine
}

func NewAutoEngine(pkg string) *AutoEngine {
	return &AutoEngine{
		structural: NewStructuralEngine(pkg),
		descriptor: NewDescriptorEngine(),
	}
}

func (e *AutoEngine) Format() string { return ModeAuto }

func (e *AutoEngine) InferStructure(samples [][]byte) (*Schema, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	for _, b := range samples {
		if _, ok := DecodeDescriptors(b); !ok {
			return e.structural.InferStructure(samples)
		}
	}
	return e.descriptor.InferStructure(samples)
}
