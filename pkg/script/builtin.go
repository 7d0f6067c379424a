package script

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/df07/go-restir-passes/pkg/graph"
)

var ErrUnknownGraph = errors.New("script: unknown graph")

// Names of the built-in graphs
const (
	ScreenSpaceReSTIR = "ScreenSpaceReSTIR"
	ModulatedReSTIR   = "ModulatedReSTIR"
	Reference         = "Reference"
)

var builtins = map[string]func() *Script{
	ScreenSpaceReSTIR: screenSpaceReSTIR,
	ModulatedReSTIR:   modulatedReSTIR,
	Reference:         reference,
}

// Builtins lists the built-in graph names
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of a built-in graph script
func Builtin(name string) (*Script, error) {
	for key, fn := range builtins {
		if strings.EqualFold(key, name) {
			return fn(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownGraph, name, strings.Join(Builtins(), ", "))
}

// Resolve returns the built-in graph called name, or loads name as a script file
func Resolve(name string) (*Script, error) {
	if s, err := Builtin(name); err == nil {
		return s, nil
	}
	if strings.HasSuffix(name, ".json") {
		return Load(name)
	}
	return Builtin(name)
}

// the post chain shared by every built-in: accumulation off, linear tone mapping
func post(src string) ([]PassDecl, [][]string) {
	passes := []PassDecl{
		{Name: "AccumulatePass", Type: "AccumulatePass", Properties: graph.Properties{
			"enabled": false, "precisionMode": "single",
		}},
		{Name: "ToneMapper", Type: "ToneMapper", Properties: graph.Properties{
			"autoExposure": false, "exposureCompensation": 0.0, "operator": "linear",
		}},
	}
	edges := [][]string{
		{src, "AccumulatePass.input"},
		{"AccumulatePass.output", "ToneMapper.src"},
	}
	return passes, edges
}

func screenSpaceReSTIR() *Script {
	passes, edges := post("ScreenSpaceReSTIRPass.color")
	return &Script{
		Name: ScreenSpaceReSTIR,
		Passes: append([]PassDecl{
			{Name: "GBufferRT", Type: "GBufferRT"},
			{Name: "ScreenSpaceReSTIRPass", Type: "ScreenSpaceReSTIRPass"},
		}, passes...),
		Edges: append([][]string{
			{"GBufferRT.vbuffer", "ScreenSpaceReSTIRPass.vbuffer"},
			{"GBufferRT.mvec", "ScreenSpaceReSTIRPass.motionVectors"},
		}, edges...),
		Outputs:       []string{"ToneMapper.dst", "ScreenSpaceReSTIRPass.debug"},
		CaptureFrames: []int{0, 20, 100},
	}
}

func modulatedReSTIR() *Script {
	passes, edges := post("ModulateIllumination.output")
	return &Script{
		Name: ModulatedReSTIR,
		Passes: append([]PassDecl{
			{Name: "GBufferRT", Type: "GBufferRT"},
			{Name: "ScreenSpaceReSTIRPass", Type: "ScreenSpaceReSTIRPass"},
			{Name: "ModulateIllumination", Type: "ModulateIllumination"},
		}, passes...),
		Edges: append([][]string{
			{"GBufferRT.vbuffer", "ScreenSpaceReSTIRPass.vbuffer"},
			{"GBufferRT.mvec", "ScreenSpaceReSTIRPass.motionVectors"},
			{"ScreenSpaceReSTIRPass.emission", "ModulateIllumination.emission"},
			{"ScreenSpaceReSTIRPass.diffuseReflectance", "ModulateIllumination.diffuseReflectance"},
			{"ScreenSpaceReSTIRPass.diffuseIllumination", "ModulateIllumination.diffuseRadiance"},
			{"ScreenSpaceReSTIRPass.specularReflectance", "ModulateIllumination.specularReflectance"},
			{"ScreenSpaceReSTIRPass.specularIllumination", "ModulateIllumination.specularRadiance"},
		}, edges...),
		Outputs:       []string{"ToneMapper.dst"},
		CaptureFrames: []int{0, 20, 100},
	}
}

func reference() *Script {
	passes, edges := post("DirectLighting.color")
	passes[0].Properties["enabled"] = true
	return &Script{
		Name: Reference,
		Passes: append([]PassDecl{
			{Name: "GBufferRT", Type: "GBufferRT"},
			{Name: "DirectLighting", Type: "DirectLighting", Properties: graph.Properties{"samplesPerPixel": 16}},
		}, passes...),
		Edges: append([][]string{
			{"GBufferRT.vbuffer", "DirectLighting.vbuffer"},
		}, edges...),
		Outputs:       []string{"ToneMapper.dst"},
		CaptureFrames: []int{0, 20, 100},
	}
}
