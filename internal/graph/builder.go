package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyDecl     = errors.New("empty declaration")
	ErrNoParent      = errors.New("record has no parent")
	ErrRootExists    = errors.New("file root already inserted")
	ErrUnknownParent = errors.New("parent occurrence not in store")
	ErrFileNotRoot   = errors.New("file role is only valid for the root record")
)

// Record is one declaration record as emitted by a source front end.
type Record struct {
	Decl  string // normalized declaration text; for the root, the file path
	Name  string // identifier, if any
	Role  Role
	Level int // nesting depth for nested records; zero derives it from the parent
	Flags Flags
}

// Builder grows a Store one record at a time.
type Builder struct {
	store *Store
	order int
}

// NewBuilder returns a builder over a fresh store.
func NewBuilder() *Builder {
	return &Builder{store: NewStore()}
}

// Store returns the store being built.
func (b *Builder) Store() *Store { return b.store }

// Insert adds one record below parent and returns the new occurrence. parent
// is nil only for the file root, which must be the first record.
//
// A nested record whose declaration is already in the store is merged into
// the existing declaration and comes back flagged FlagDuplicate; callers need
// not walk its members again.
func (b *Builder) Insert(rec Record, parent *Occurrence) (Occurrence, error) {
	text := strings.TrimRight(rec.Decl, " \t\n")
	if text == "" {
		return Occurrence{}, ErrEmptyDecl
	}
	key := KeyOf(text)

	if parent == nil {
		return b.insertRoot(rec, text, key)
	}

	if rec.Role == RoleFile {
		return Occurrence{}, ErrFileNotRoot
	}

	p, ok := b.store.Occurrence(parent.Link())
	if !ok {
		return Occurrence{}, fmt.Errorf("%w: %08x/%d", ErrUnknownParent, uint32(parent.Key), parent.Order)
	}
	pd, _ := b.store.Lookup(p.Key)

	level := rec.Role.Level()
	if rec.Role == RoleNested {
		level = rec.Level
		if level == 0 {
			level = p.Level + 1
		}
		if level < LevelNested {
			level = LevelNested
		}
	}

	b.order++
	occ := Occurrence{
		Key:    key,
		Level:  level,
		Order:  b.order,
		Role:   rec.Role,
		Flags:  rec.Flags,
		Name:   rec.Name,
		Parent: p.Link(),
	}

	if p.Role.IsArgument() {
		occ.Argument = Ref{Key: p.Key, Level: p.Level}
	} else {
		occ.Argument = p.Argument
	}
	if rec.Role == RoleExported {
		occ.Function = Ref{Key: key, Level: level}
	} else {
		occ.Function = p.Function
	}

	existing, exists := b.store.Lookup(key)
	if exists && level >= LevelNested {
		occ.Flags |= FlagDuplicate
	}

	if exists {
		b.store.appendSibling(existing, occ)
	} else {
		d := &Decl{Key: key, Text: text, Flags: rec.Flags & DeclFlags}
		b.store.decls[key] = d
		b.store.appendSibling(d, occ)
	}
	pd.Children = append(pd.Children, occ.Link())

	return occ, nil
}

func (b *Builder) insertRoot(rec Record, text string, key Key) (Occurrence, error) {
	if rec.Role != RoleFile {
		return Occurrence{}, ErrNoParent
	}
	if !b.store.root.IsNull() {
		return Occurrence{}, ErrRootExists
	}

	b.order++
	occ := Occurrence{
		Key:   key,
		Level: LevelFile,
		Order: b.order,
		Role:  RoleFile,
		Flags: rec.Flags,
		Name:  rec.Name,
	}
	d := &Decl{Key: key, Text: text, Flags: rec.Flags & DeclFlags}
	b.store.decls[key] = d
	b.store.appendSibling(d, occ)
	b.store.root = occ.Link()
	return occ, nil
}
