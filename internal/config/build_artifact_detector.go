// Build artifact detection from MSBuild project files.
// Reads *.csproj and Directory.Build.props to find custom output directories.
package config

import (
	"encoding/xml"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// BuildArtifactDetector finds build output directories declared by
// projects under a root.
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a new build artifact detector
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// projectFilePatterns are searched two levels deep; deeper solutions rely
// on the default bin/obj exclusions.
var projectFilePatterns = []string{
	"Directory.Build.props",
	"*.csproj",
	"*/*.csproj",
	"*/*/*.csproj",
}

// outputProperties are the MSBuild properties naming output directories.
var outputProperties = map[string]bool{
	"OutputPath":                 true,
	"BaseOutputPath":             true,
	"IntermediateOutputPath":     true,
	"BaseIntermediateOutputPath": true,
	"PublishDir":                 true,
	"ArtifactsPath":              true,
	"PackageOutputPath":          true,
}

type msbuildProject struct {
	PropertyGroups []struct {
		Properties []struct {
			XMLName xml.Name
			Value   string `xml:",chardata"`
		} `xml:",any"`
	} `xml:"PropertyGroup"`
}

// DetectOutputDirectories returns exclusion globs such as "src/Api/out/**".
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	fsys := os.DirFS(bad.projectRoot)
	var patterns []string
	for _, pattern := range projectFilePatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			continue
		}
		for _, rel := range matches {
			patterns = append(patterns, bad.detectProjectOutputs(rel)...)
		}
	}
	return DeduplicatePatterns(patterns)
}

func (bad *BuildArtifactDetector) detectProjectOutputs(rel string) []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}
	var proj msbuildProject
	if xml.Unmarshal(data, &proj) != nil {
		return nil
	}

	dir := path.Dir(rel)
	var patterns []string
	for _, group := range proj.PropertyGroups {
		for _, prop := range group.Properties {
			if !outputProperties[prop.XMLName.Local] {
				continue
			}
			if p := outputGlob(dir, prop.Value); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}

// outputGlob maps an MSBuild path relative to dir to an exclusion glob.
// Paths leaving the root or starting with a property reference are
// ignored; a trailing reference like "out\$(Configuration)" keeps "out".
func outputGlob(dir, value string) string {
	v := strings.ReplaceAll(strings.TrimSpace(value), `\`, "/")
	if i := strings.Index(v, "$("); i >= 0 {
		v = v[:i]
	}
	v = strings.Trim(v, "/")
	if v == "" || path.IsAbs(value) || filepath.IsAbs(v) {
		return ""
	}
	joined := path.Clean(path.Join(dir, v))
	if joined == "." || joined == ".." || strings.HasPrefix(joined, "../") {
		return ""
	}
	return joined + "/**"
}

// DeduplicatePatterns removes duplicate exclusion patterns, keeping order.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
