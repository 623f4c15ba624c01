package designctx

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/canvasreview/internal/imaging"
	"github.com/canvasreview/pkg/models"
)

// NodeSource is the slice of the design API the extractor reads from.
type NodeSource interface {
	FetchNode(ctx context.Context, fileKey, nodeID string) (*models.Node, error)
}

// Extractor composes node metadata lookup with the image materializer into
// one DesignContext per comment. Its external contract is "always returns a
// context, never an error": internal failures degrade the returned context.
type Extractor struct {
	nodes        NodeSource
	materializer *imaging.Materializer
}

func NewExtractor(nodes NodeSource, materializer *imaging.Materializer) *Extractor {
	return &Extractor{nodes: nodes, materializer: materializer}
}

// Extract builds the visual context for one comment. A comment without a
// node anchor yields an empty context, a valid non-error outcome meaning
// "no visual context available". A node lookup failure yields a context
// carrying only the node id.
func (e *Extractor) Extract(ctx context.Context, fileKey string, comment models.Comment) models.DesignContext {
	if comment.ClientMeta == nil || comment.ClientMeta.NodeID == "" {
		return models.DesignContext{}
	}
	nodeID := comment.ClientMeta.NodeID

	node, err := e.nodes.FetchNode(ctx, fileKey, nodeID)
	if err != nil {
		log.Warn().Err(err).Str("comment_id", comment.ID).Str("node_id", nodeID).
			Msg("node lookup failed, continuing with id-only context")
		return models.DesignContext{NodeID: nodeID}
	}

	dc := models.DesignContext{
		NodeID:         node.ID,
		NodeName:       node.Name,
		NodeType:       node.Type,
		NodeProperties: nodeProperties(node),
	}

	result := e.materializer.Materialize(ctx, fileKey, node, comment.ClientMeta)
	dc.ImageURL = result.ImageURL
	dc.ImageBase64 = result.ImageBase64
	if result.Level != imaging.Cropped {
		log.Debug().Str("comment_id", comment.ID).Str("level", string(result.Level)).
			Msg("image materialization degraded")
	}
	return dc
}

func nodeProperties(node *models.Node) map[string]string {
	if node.AbsoluteBoundingBox == nil {
		return nil
	}
	box := node.AbsoluteBoundingBox
	return map[string]string{
		"width":  fmt.Sprintf("%.0f", box.Width),
		"height": fmt.Sprintf("%.0f", box.Height),
		"x":      fmt.Sprintf("%.0f", box.X),
		"y":      fmt.Sprintf("%.0f", box.Y),
	}
}
