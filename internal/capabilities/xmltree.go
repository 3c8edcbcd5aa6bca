package capabilities

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

func childText(el *etree.Element, path string) string {
	if el == nil || path == "" {
		return ""
	}
	child := el.FindElement(path)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func childTexts(el *etree.Element, path string) []string {
	if el == nil || path == "" {
		return nil
	}
	var values []string
	for _, child := range el.FindElements(path) {
		if value := strings.TrimSpace(child.Text()); value != "" {
			values = append(values, value)
		}
	}
	return values
}

func attrValue(el *etree.Element, key string) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.SelectAttrValue(key, ""))
}

func parseFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(value string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(value))
	return v
}

func parseBool(value string) bool {
	value = strings.TrimSpace(value)
	return value == "1" || strings.EqualFold(value, "true")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// qualified prefixes tag with the namespace prefix of parent so that created
// elements land in the same namespace as their siblings.
func qualified(parent *etree.Element, tag string) string {
	if parent.Space == "" {
		return tag
	}
	return parent.Space + ":" + tag
}

// ensurePath walks a slash separated path of plain tags below el, creating the
// elements that are missing.
func ensurePath(el *etree.Element, path string) *etree.Element {
	current := el
	for _, tag := range strings.Split(path, "/") {
		child := current.SelectElement(tag)
		if child == nil {
			child = current.CreateElement(qualified(current, tag))
		}
		current = child
	}
	return current
}

// setChildText writes value at path. Missing elements are only created for a
// non-empty value.
func setChildText(el *etree.Element, path, value string) {
	if el == nil || path == "" {
		return
	}
	if child := el.FindElement(path); child != nil {
		child.SetText(value)
		return
	}
	if value != "" {
		ensurePath(el, path).SetText(value)
	}
}

// replaceChildren removes every tag child of el and appends one child per value.
func replaceChildren(el *etree.Element, tag string, values []string) {
	removeChildren(el, tag)
	for _, value := range values {
		el.CreateElement(qualified(el, tag)).SetText(value)
	}
}

func removeChildren(el *etree.Element, tag string) {
	for _, child := range el.SelectElements(tag) {
		el.RemoveChild(child)
	}
}

// splitPath separates the last tag of a path from its parent path.
func splitPath(path string) (string, string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// createOrdered creates a tag child of el at the position order gives it:
// before the first child whose tag comes later in order.
func createOrdered(el *etree.Element, tag string, order []string) *etree.Element {
	child := etree.NewElement(qualified(el, tag))
	el.InsertChildAt(orderedIndex(el, tag, order), child)
	return child
}

func orderedIndex(el *etree.Element, tag string, order []string) int {
	rank := tagRank(order, tag)
	for _, child := range el.ChildElements() {
		if tagRank(order, child.Tag) > rank {
			return child.Index()
		}
	}
	return len(el.Child)
}

func tagRank(order []string, tag string) int {
	for i, t := range order {
		if t == tag {
			return i
		}
	}
	return -1
}

// setOrderedText writes value into the tag child of el, creating it in
// order when missing and value is not empty.
func setOrderedText(el *etree.Element, tag, value string, order []string) {
	child := el.SelectElement(tag)
	if child == nil {
		if value == "" {
			return
		}
		child = createOrdered(el, tag, order)
	}
	child.SetText(value)
}

// ensureOrdered returns the tag child of el, creating it in order.
func ensureOrdered(el *etree.Element, tag string, order []string) *etree.Element {
	if child := el.SelectElement(tag); child != nil {
		return child
	}
	return createOrdered(el, tag, order)
}

// setAttrOrRemove writes a non-empty value as attribute key and removes the
// attribute otherwise.
func setAttrOrRemove(el *etree.Element, key, value string) {
	if value == "" {
		el.RemoveAttr(key)
		return
	}
	el.CreateAttr(key, value)
}

// setFlag writes a boolean attribute as "1" or "0". An absent attribute that
// would be "0" stays absent.
func setFlag(el *etree.Element, key string, value bool) {
	switch {
	case value:
		el.CreateAttr(key, "1")
	case el.SelectAttr(key) != nil:
		el.CreateAttr(key, "0")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
