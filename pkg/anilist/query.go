package anilist

import (
	"fmt"
	"strconv"
	"strings"
)

// Document is a rendered GraphQL query with its variable bindings, ready to
// be posted by the executor. Builders perform no I/O.
type Document struct {
	Query     string
	Variables map[string]any
}

// UserBatch identifies an ordered group of users for a multi-user query.
// Exactly one of Names or IDs must be non-empty; a batch never mixes the two
// because the upstream variable types differ (String vs Int).
type UserBatch struct {
	Names []string
	IDs   []int
}

func (b UserBatch) validate() error {
	if (len(b.Names) == 0) == (len(b.IDs) == 0) {
		return ErrExclusiveUsers
	}
	return nil
}

// Len returns the number of users in the batch.
func (b UserBatch) Len() int {
	if len(b.Names) > 0 {
		return len(b.Names)
	}
	return len(b.IDs)
}

// Labels returns the user identifiers as strings, aligned with the u{i}
// aliases of the completed-list query. Decoders key their results by these.
func (b UserBatch) Labels() []string {
	if len(b.Names) > 0 {
		return b.Names
	}
	labels := make([]string, len(b.IDs))
	for i, id := range b.IDs {
		labels[i] = strconv.Itoa(id)
	}
	return labels
}

// UserRef identifies a single user by name or by id. Exactly one field must
// be set; ID 0 is the "unset" sentinel, which is safe because AniList user
// ids start at 1.
type UserRef struct {
	Name string
	ID   int
}

func (r UserRef) validate() error {
	if (r.Name == "") == (r.ID == 0) {
		return ErrExclusiveUsers
	}
	return nil
}

// String returns the identifier for logging and error messages.
func (r UserRef) String() string {
	if r.Name != "" {
		return r.Name
	}
	return strconv.Itoa(r.ID)
}

// varDecl is a typed variable declaration of a query document.
type varDecl struct {
	name    string
	gqlType string
}

// selection is one aliased sub-query of a document.
type selection struct {
	alias string
	body  string
}

// documentBuilder composes typed variable declarations and aliased
// selections and renders them into a single document. Centralizing the
// rendering keeps the alias naming convention (u{i}, p{page}) in one place.
type documentBuilder struct {
	opName     string
	vars       []varDecl
	selections []selection
	fragments  []string
	bindings   map[string]any
}

func newDocumentBuilder(opName string) *documentBuilder {
	return &documentBuilder{
		opName:   opName,
		bindings: make(map[string]any),
	}
}

// declare adds a variable declaration without binding a value. Used where
// the upstream accepts either of two mutually exclusive variables.
func (d *documentBuilder) declare(name, gqlType string) {
	d.vars = append(d.vars, varDecl{name: name, gqlType: gqlType})
}

// bind declares a variable and binds its value.
func (d *documentBuilder) bind(name, gqlType string, value any) {
	d.declare(name, gqlType)
	d.bindings[name] = value
}

func (d *documentBuilder) selectAlias(alias, body string) {
	d.selections = append(d.selections, selection{alias: alias, body: body})
}

func (d *documentBuilder) fragment(text string) {
	d.fragments = append(d.fragments, text)
}

func (d *documentBuilder) build() Document {
	var b strings.Builder

	b.WriteString("query ")
	b.WriteString(d.opName)
	if len(d.vars) > 0 {
		b.WriteString("(")
		for i, v := range d.vars {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%s: %s", v.name, v.gqlType)
		}
		b.WriteString(")")
	}
	b.WriteString(" {\n")
	for _, s := range d.selections {
		fmt.Fprintf(&b, "  %s: %s\n", s.alias, s.body)
	}
	b.WriteString("}\n")
	for _, f := range d.fragments {
		b.WriteString(f)
		b.WriteString("\n")
	}

	return Document{Query: b.String(), Variables: d.bindings}
}

const completedListFragment = `fragment MLG on MediaListGroup {
  entries {
    mediaId
    media { title { romaji } }
    score(format: POINT_100)
  }
}`

const completersFragment = `fragment mediaListFragment on Page {
  pageInfo { currentPage hasNextPage }
  mediaList(mediaId: $mediaID, status: COMPLETED) {
    userId
    score(format: POINT_100)
  }
}`

// BuildCompletedListQuery builds a multi-user completed-list query. Each
// user i of the batch becomes an alias u{i} over MediaListCollection with a
// typed variable username{i}: String or id{i}: Int. Batching amortizes the
// one-request-per-second budget across many users.
func BuildCompletedListQuery(batch UserBatch) (Document, error) {
	if err := batch.validate(); err != nil {
		return Document{}, err
	}

	d := newDocumentBuilder("UserAnime")
	d.fragment(completedListFragment)

	byName := len(batch.Names) > 0
	for i := 1; i <= batch.Len(); i++ {
		var varName, gqlType, userParam string
		var value any
		if byName {
			varName = fmt.Sprintf("username%d", i)
			gqlType = "String"
			userParam = "userName"
			value = batch.Names[i-1]
		} else {
			varName = fmt.Sprintf("id%d", i)
			gqlType = "Int"
			userParam = "userId"
			value = batch.IDs[i-1]
		}
		d.bind(varName, gqlType, value)
		d.selectAlias(
			fmt.Sprintf("u%d", i),
			fmt.Sprintf("MediaListCollection(%s: $%s, type: ANIME, forceSingleCompletedList: true, status: COMPLETED) { lists { ...MLG } }",
				userParam, varName),
		)
	}

	return d.build(), nil
}

// BuildPlanningQuery builds a single-user planning-list query. Exactly one
// of the id/username variables is bound; the other stays declared but
// unbound, which the upstream treats as absent.
func BuildPlanningQuery(ref UserRef) (Document, error) {
	if err := ref.validate(); err != nil {
		return Document{}, err
	}

	d := newDocumentBuilder("UserAnime")
	if ref.Name != "" {
		d.declare("id", "Int")
		d.bind("username", "String", ref.Name)
	} else {
		d.bind("id", "Int", ref.ID)
		d.declare("username", "String")
	}
	d.selectAlias(
		"MediaListCollection",
		"MediaListCollection(userId: $id, userName: $username, type: ANIME, status: PLANNING) { lists { entries { mediaId media { title { romaji } } } } }",
	)

	return d.build(), nil
}

// BuildCompletersQuery builds a paginated completers query covering pages
// [startPage, startPage+pages). Each page becomes an alias p{page} over a
// Page sub-query sharing $mediaID and $perPage. Fetching a window of pages
// per round trip reduces the number of rate-limited requests.
func BuildCompletersQuery(mediaID, startPage, pages, perPage int) Document {
	d := newDocumentBuilder("MediaCompleters")
	d.bind("mediaID", "Int", mediaID)
	d.bind("perPage", "Int", perPage)
	d.fragment(completersFragment)

	for p := startPage; p < startPage+pages; p++ {
		varName := fmt.Sprintf("page%d", p)
		d.bind(varName, "Int", p)
		d.selectAlias(
			fmt.Sprintf("p%d", p),
			fmt.Sprintf("Page(page: $%s, perPage: $perPage) { ...mediaListFragment }", varName),
		)
	}

	return d.build()
}
