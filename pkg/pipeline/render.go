package pipeline

import (
	"context"

	"github.com/matzehuels/forcegraph/pkg/render/frame"
	"github.com/matzehuels/forcegraph/pkg/render/nodelink"
	"github.com/matzehuels/forcegraph/pkg/render/term"
	"github.com/matzehuels/forcegraph/pkg/viewport"
)

// Text grid size for FormatText.
const (
	TextCols = 100
	TextRows = 40
)

// RenderAll renders each of opts.Formats from l.
func RenderAll(ctx context.Context, l frame.Layout, opts Options) (map[string][]byte, error) {
	out := make(map[string][]byte, len(opts.Formats))
	for _, f := range opts.Formats {
		b, err := RenderFormat(ctx, l, f, opts)
		if err != nil {
			return nil, err
		}
		out[f] = b
	}
	return out, nil
}

// RenderFormat renders one format.
func RenderFormat(ctx context.Context, l frame.Layout, format string, opts Options) ([]byte, error) {
	dotOpts := nodelink.Options{EdgeLabels: opts.EdgeLabels, Directed: opts.Directed}
	switch format {
	case FormatJSON:
		return l.Marshal()
	case FormatDOT:
		return []byte(nodelink.ToDOT(l, dotOpts)), nil
	case FormatSVG:
		return nodelink.RenderSVG(ctx, nodelink.ToDOT(l, dotOpts))
	case FormatText:
		return []byte(renderText(l) + "\n"), nil
	default:
		return nil, ValidateFormat(format)
	}
}

// renderText re-fits l to the text grid so the whole graph is visible
// regardless of the pixel view it was laid out for.
func renderText(l frame.Layout) string {
	view := term.ViewSize(TextCols, TextRows)
	l.Transform = fitText(l, view)
	return term.Render(l, term.Options{Cols: TextCols, Rows: TextRows, Labels: true, Plain: true})
}

func fitText(l frame.Layout, view viewport.Size) viewport.Transform {
	return viewport.FitPositions(l.Positions(), view, viewport.Options{Padding: term.CellHeight, DefaultScale: 1})
}
