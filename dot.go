package gaussnet

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/awalterschulze/gographviz"
	"github.com/gorgonia/gaussnet/layer"
	"github.com/pkg/errors"
)

// ToDot renders the layer chain as a graphviz digraph. Dashed edges mark where a Gaussian layer
// pushes its regularization gradient.
func (n *Network) ToDot() (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		return "", errors.WithStack(err)
	}
	if err := g.SetDir(true); err != nil {
		return "", errors.WithStack(err)
	}

	var buf bytes.Buffer
	for _, l := range n.stack.Layers() {
		if err := tmpl.Execute(&buf, l); err != nil {
			return "", errors.WithStack(err)
		}
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "none",
			"label":    buf.String(),
		}
		buf.Reset()
		if err := g.AddNode("G", nodeName(l), attrs); err != nil {
			return "", errors.WithStack(err)
		}

		prev := l.PreviousLayer()
		if prev == nil {
			continue
		}
		if err := g.AddEdge(nodeName(prev), nodeName(l), true, nil); err != nil {
			return "", errors.WithStack(err)
		}
		task, ok := l.BackDeltaTask.(*layer.GaussianBackDeltaTask)
		if !ok || !task.Regularize || prev.PreviousLayer() == nil {
			continue
		}
		attrs = map[string]string{
			"style": "dashed",
			"label": "KL",
		}
		if err := g.AddEdge(nodeName(l), nodeName(prev.PreviousLayer()), true, attrs); err != nil {
			return "", errors.WithStack(err)
		}
	}
	return g.String(), nil
}

func nodeName(l *layer.Layer) string { return fmt.Sprintf("L%d", l.Index()) }

const tmplRaw = `<
<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0">
<TR><TD>Layer</TD><TD>{{.Name}}</TD></TR>
<TR><TD>Kind</TD><TD>{{.Kind}}</TD></TR>
<TR><TD>Neurons</TD><TD>{{.Neurons}}</TD></TR>
<TR><TD>Activation</TD><TD>{{.Activation}}</TD></TR>
</TABLE>
>`

var tmpl *template.Template

func init() {
	tmpl = template.Must(template.New("layer").Parse(tmplRaw))
}
