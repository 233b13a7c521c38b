package directive

// Kind names a recognized directive.
type Kind string

const (
	KindTitle         Kind = "title"
	KindArtist        Kind = "artist"
	KindAlbum         Kind = "album"
	KindCut           Kind = "cut"
	KindCutHead       Kind = "cuthead"
	KindSplitChapters Kind = "splitchapters"
	KindCover         Kind = "cover"
	KindReplaceTitle  Kind = "replacetitle"
)

// Category groups directives that share arity and uniqueness rules.
type Category int

const (
	CategoryMetadata Category = iota
	CategoryLength
	CategoryGeneral
)

func (c Category) String() string {
	switch c {
	case CategoryMetadata:
		return "metadata"
	case CategoryLength:
		return "length"
	default:
		return "general"
	}
}

var categories = map[Kind]Category{
	KindTitle:         CategoryMetadata,
	KindArtist:        CategoryMetadata,
	KindAlbum:         CategoryMetadata,
	KindCut:           CategoryLength,
	KindCutHead:       CategoryLength,
	KindSplitChapters: CategoryLength,
	KindCover:         CategoryGeneral,
	KindReplaceTitle:  CategoryGeneral,
}

// LookupKind returns the Kind for a directive name, or false when the name is
// not a recognized directive. Names are case sensitive.
func LookupKind(name string) (Kind, bool) {
	k := Kind(name)
	_, ok := categories[k]
	return k, ok
}

// Category returns the category of k.
func (k Kind) Category() Category {
	return categories[k]
}

// Repeatable reports whether k may occur more than once in one message.
func (k Kind) Repeatable() bool {
	return k == KindReplaceTitle
}

func (k Kind) String() string {
	return string(k)
}
