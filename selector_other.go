//go:build !unix

package indisocket

var defaultSelectorFactory SelectorFactory = newDeadlineSelector
