package syncer

import "github.com/MrSnakeDoc/marksync/internal/domain"

// MergeScene replaces the target scene's bookmarks in local with pulled,
// leaving every other scene untouched. Remote wins at scene granularity.
//
// Pulled bookmarks are re-stamped with the target scene. A pulled bookmark
// whose id is already used by another scene is skipped so ids stay unique
// across the store; the number skipped is returned.
func MergeScene(local domain.Bundle, target string, pulled domain.Bundle) (domain.Bundle, int) {
	norm := domain.NormalizeData(pulled.Bookmarks, pulled.Folders)

	merged := make([]domain.Bookmark, 0, len(local.Bookmarks)+len(norm.Bookmarks))
	taken := make(map[string]bool, len(local.Bookmarks))
	for _, b := range local.Bookmarks {
		if b.SceneOrDefault() == target {
			continue
		}
		merged = append(merged, b)
		taken[b.ID] = true
	}

	skipped := 0
	for _, b := range norm.Bookmarks {
		if taken[b.ID] {
			skipped++
			continue
		}
		b.Scene = target
		merged = append(merged, b)
	}

	return domain.Bundle{
		Bookmarks: merged,
		Folders:   domain.UnionFolders(local.Folders, norm.Folders),
	}, skipped
}

// ScopeToScene keeps only the bookmarks owned by target and derives the
// scene's folder set from them.
func ScopeToScene(bookmarks []domain.Bookmark, folders []string, target string) domain.Bundle {
	norm := domain.NormalizeData(bookmarks, folders)

	scoped := make([]domain.Bookmark, 0, len(norm.Bookmarks))
	for _, b := range norm.Bookmarks {
		if b.SceneOrDefault() != target {
			continue
		}
		b.Scene = target
		scoped = append(scoped, b)
	}

	return domain.Bundle{
		Bookmarks: scoped,
		Folders:   domain.FoldersOf(scoped),
	}
}
