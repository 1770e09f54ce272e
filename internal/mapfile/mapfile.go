// Package mapfile reads the LAYER names out of a MapServer mapfile and
// compares them with the WMS layer names a portal requests.
package mapfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"MapLayerStore/internal/logger"
)

// blockKeywords open a block closed by a matching END.
var blockKeywords = map[string]bool{
	"MAP": true, "LAYER": true, "CLASS": true, "STYLE": true, "WEB": true,
	"METADATA": true, "PROJECTION": true, "OUTPUTFORMAT": true, "LEGEND": true,
	"SCALEBAR": true, "QUERYMAP": true, "REFERENCE": true, "SYMBOL": true,
	"LABEL": true, "FEATURE": true, "COMPOSITE": true, "VALIDATION": true,
	"CLUSTER": true, "JOIN": true, "GRID": true, "CONFIG": true, "POINTS": true,
	"PATTERN": true, "LEADER": true, "SCALETOKEN": true, "VALUES": true,
}

// stripComment drops a # comment that is not inside a quoted string.
func stripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#':
			return strings.TrimSpace(line[:i])
		}
	}
	return strings.TrimSpace(line)
}

// value returns the first argument of a directive, unquoted.
func value(rest string) string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ""
	}
	if q := rest[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(rest[1:], q)
		if end < 0 {
			return ""
		}
		return strings.TrimSpace(rest[1 : end+1])
	}
	return strings.Fields(rest)[0]
}

// LayerNames returns the sorted, distinct NAME of every LAYER block. Only the
// first keyword of each line is considered.
func LayerNames(r io.Reader) ([]string, error) {
	var stack []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripComment(sc.Text())
		if line == "" {
			continue
		}
		kw, rest := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			kw, rest = line[:i], line[i+1:]
		}
		kw = strings.ToUpper(kw)
		switch {
		case blockKeywords[kw]:
			stack = append(stack, kw)
		case kw == "END":
			if len(stack) == 0 {
				logger.Warn("mapfile_unbalanced_end", map[string]any{"line": lineNo})
				continue
			}
			stack = stack[:len(stack)-1]
		case kw == "NAME" && len(stack) > 0 && stack[len(stack)-1] == "LAYER":
			if name := value(rest); name != "" {
				seen[name] = true
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mapfile: %w", err)
	}
	if len(stack) > 0 {
		logger.Warn("mapfile_unclosed_blocks", map[string]any{"open": strings.Join(stack, " > ")})
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func LayerNamesFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	names, err := LayerNames(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return names, nil
}

// Reference is one mapfile layer name a portal layer requests.
type Reference struct {
	LayerKey string `json:"layerKey"`
	Name     string `json:"name"`
}

// Report is the difference between a mapfile and a portal's WMS layers.
type Report struct {
	Portal        string `json:"portal"`
	MapfileLayers int    `json:"mapfileLayers"`
	Referenced    int    `json:"referenced"`
	// Missing are requested by a portal layer but absent from the mapfile.
	Missing []Reference `json:"missing"`
	// Unused are served by the mapfile but requested by no portal layer.
	Unused []string `json:"unused"`
}

// OK reports whether every requested name is served.
func (r Report) OK() bool { return len(r.Missing) == 0 }

// SplitWMSLayers splits a WMS LAYERS parameter into its names.
func SplitWMSLayers(layers string) []string {
	var out []string
	for _, n := range strings.Split(layers, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Compare checks the WMS layer names of each portal layer (keyed by
// layerKey, value as stored in LayerWmsOptions.layers) against the mapfile.
func Compare(portal string, mapNames []string, wmsLayers map[string]string) Report {
	rep := Report{Portal: portal, MapfileLayers: len(mapNames), Missing: []Reference{}, Unused: []string{}}
	served := make(map[string]bool, len(mapNames))
	for _, n := range mapNames {
		served[n] = true
	}
	keys := make([]string, 0, len(wmsLayers))
	for k := range wmsLayers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	used := map[string]bool{}
	for _, k := range keys {
		for _, n := range SplitWMSLayers(wmsLayers[k]) {
			used[n] = true
			if !served[n] {
				rep.Missing = append(rep.Missing, Reference{LayerKey: k, Name: n})
			}
		}
	}
	rep.Referenced = len(used)
	for _, n := range mapNames {
		if !used[n] {
			rep.Unused = append(rep.Unused, n)
		}
	}
	return rep
}
