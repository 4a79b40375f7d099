package domain

import "strings"

// NormalizeFolder canonicalizes a folder path: segments are trimmed, empty
// segments are dropped and the result has no leading or trailing slash.
// "/a//b/" -> "a/b"
func NormalizeFolder(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	raw := strings.Split(p, "/")
	parts := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

// NormalizeData canonicalizes every bookmark folder and returns the
// de-duplicated, non-empty set of the folders explicitly supplied.
//
// The folder set is not recomputed from bookmark membership, so a folder
// whose bookmarks are temporarily gone survives a sync pass.
func NormalizeData(bookmarks []Bookmark, folders []string) Bundle {
	out := Bundle{
		Bookmarks: make([]Bookmark, 0, len(bookmarks)),
		Folders:   make([]string, 0, len(folders)),
	}

	for _, b := range bookmarks {
		b.Folder = NormalizeFolder(b.Folder)
		if b.Tags == nil {
			b.Tags = []string{}
		}
		out.Bookmarks = append(out.Bookmarks, b)
	}

	seen := make(map[string]bool, len(folders))
	for _, f := range folders {
		f = NormalizeFolder(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out.Folders = append(out.Folders, f)
	}

	return out
}

// FoldersOf derives a folder set from the folders bookmarks reference,
// in order of first appearance.
func FoldersOf(bookmarks []Bookmark) []string {
	folders := make([]string, 0)
	seen := make(map[string]bool)
	for _, b := range bookmarks {
		f := NormalizeFolder(b.Folder)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		folders = append(folders, f)
	}
	return folders
}

// UnionFolders merges folder sets, keeping the order of first appearance.
func UnionFolders(sets ...[]string) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, set := range sets {
		for _, f := range set {
			f = NormalizeFolder(f)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
