package cache

import "strconv"

// ListID marks the collection-level tag of an entity type, as opposed to the
// tag of one entity.
const ListID = "LIST"

// Tag labels a cached query result. Mutations declare the tags they
// invalidate; every cached entry whose tag set intersects goes stale.
type Tag struct {
	Type string
	ID   string
}

// ListTag returns the collection-level tag for an entity type, e.g.
// "Expenses:LIST".
func ListTag(entityType string) Tag {
	return Tag{Type: entityType, ID: ListID}
}

// EntityTag returns the tag of a single entity, e.g. "Expenses:42".
func EntityTag(entityType string, id int64) Tag {
	return Tag{Type: entityType, ID: strconv.FormatInt(id, 10)}
}

func (t Tag) String() string {
	return t.Type + ":" + t.ID
}

// Key identifies one cached query result: the endpoint name plus its
// serialized argument.
type Key struct {
	Endpoint string
	Arg      string
}

func (k Key) String() string {
	return k.Endpoint + "(" + k.Arg + ")"
}

// tagIndex maps tags to the cache keys whose last successful result carried
// them. It is rebuilt per key on every successful fetch and consulted on
// every mutation.
type tagIndex struct {
	byTag map[Tag]map[Key]struct{}
	byKey map[Key][]Tag
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag: make(map[Tag]map[Key]struct{}),
		byKey: make(map[Key][]Tag),
	}
}

// rebind replaces the tag set of key with tags.
func (ti *tagIndex) rebind(key Key, tags []Tag) {
	ti.drop(key)
	if len(tags) == 0 {
		return
	}
	ti.byKey[key] = tags
	for _, tag := range tags {
		keys, ok := ti.byTag[tag]
		if !ok {
			keys = make(map[Key]struct{})
			ti.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

// drop removes key from the index entirely.
func (ti *tagIndex) drop(key Key) {
	for _, tag := range ti.byKey[key] {
		keys := ti.byTag[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(ti.byTag, tag)
		}
	}
	delete(ti.byKey, key)
}

// keysFor returns every key whose tag set intersects tags.
func (ti *tagIndex) keysFor(tags []Tag) map[Key]struct{} {
	hit := make(map[Key]struct{})
	for _, tag := range tags {
		for key := range ti.byTag[tag] {
			hit[key] = struct{}{}
		}
	}
	return hit
}

// tagsOf returns the current tag set of key.
func (ti *tagIndex) tagsOf(key Key) []Tag {
	return ti.byKey[key]
}
