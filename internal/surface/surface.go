// Package surface holds the tagged classification of walkable structure and
// the arena that hands out stable handles for branches, webs and the nest.
package surface

import "fmt"

// Kind enumerates the surface variants a navigation node can sit on.
type Kind uint8

const (
	None Kind = iota
	Trunk
	Branch
	Web
	Nest
	Construction
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Trunk:
		return "trunk"
	case Branch:
		return "branch"
	case Web:
		return "web"
	case Nest:
		return "nest"
	case Construction:
		return "construction"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Bridges reports whether the kind joins any neighbouring surface it touches.
func (k Kind) Bridges() bool {
	return k == Web || k == Construction
}

// Handle indexes a surface inside a Table. For construction references it
// carries the owning order id instead.
type Handle int

// NoHandle marks references that do not point into the table.
const NoHandle Handle = -1

// Ref is a weak reference from a node to the surface classifying it.
type Ref struct {
	Kind   Kind   `json:"kind"`
	Handle Handle `json:"handle"`
}

var NoneRef = Ref{Kind: None, Handle: NoHandle}

func TrunkRef() Ref { return Ref{Kind: Trunk, Handle: NoHandle} }

func BranchRef(h Handle) Ref { return Ref{Kind: Branch, Handle: h} }

func WebRef(h Handle) Ref { return Ref{Kind: Web, Handle: h} }

func NestRef(h Handle) Ref { return Ref{Kind: Nest, Handle: h} }

func ConstructionRef(order int) Ref { return Ref{Kind: Construction, Handle: Handle(order)} }

// IsNone reports whether the reference classifies nothing.
func (r Ref) IsNone() bool {
	return r.Kind == None
}

// Same reports whether both references name the same concrete surface. Trunk
// references are always the same surface.
func (r Ref) Same(o Ref) bool {
	if r.Kind != o.Kind {
		return false
	}
	if r.Kind == Trunk || r.Kind == None {
		return true
	}
	return r.Handle == o.Handle
}

func (r Ref) String() string {
	if r.Handle == NoHandle {
		return r.Kind.String()
	}
	return fmt.Sprintf("%s#%d", r.Kind, r.Handle)
}
