package engine

import "github.com/ironsheep/bento-measure-mcp/internal/imaging"

// ErrImageDecode matches any error caused by unreadable image input. The
// concrete error is an *imaging.DecodeError naming the source.
var ErrImageDecode = imaging.ErrDecode
