package git

import (
	"errors"
	"fmt"
	"strings"
)

// ListRefs returns HEAD (when it is born) followed by every local branch,
// remote branch and tag. These are the starting points of a full graph walk;
// HEAD is included so a detached checkout is still reachable.
func ListRefs(store Store) ([]Ref, error) {
	var refs []Ref
	head, err := store.Head()
	switch {
	case err == nil:
		refs = append(refs, head)
	case errors.Is(err, ErrNotFound):
		// Unborn HEAD, e.g. a freshly initialized repository.
	default:
		return nil, err
	}
	others, err := store.References()
	if err != nil {
		return nil, err
	}
	return append(refs, others...), nil
}

// Labels groups ref decorations by commit: "HEAD -> main" first, then
// branches, remote branches and "tag: v1" labels. The branch HEAD points to
// is only listed once, as part of the HEAD label.
func Labels(refs []Ref) map[Oid][]string {
	var head *Ref
	for i := range refs {
		if refs[i].Kind == RefKindHead && !refs[i].Oid.IsZero() {
			head = &refs[i]
			break
		}
	}
	labels := map[Oid][]string{}
	for _, ref := range refs {
		if ref.Oid.IsZero() || ref.Name == "" || ref.Kind == RefKindHead {
			continue
		}
		label := ref.Name
		switch ref.Kind {
		case RefKindBranch:
			if head != nil && head.Name == ref.Name {
				continue
			}
		case RefKindRemoteBranch:
			if strings.HasSuffix(ref.Name, "/HEAD") {
				continue
			}
		case RefKindTag:
			label = fmt.Sprintf("tag: %s", ref.Name)
		}
		labels[ref.Oid] = append(labels[ref.Oid], label)
	}
	if head != nil {
		label := "HEAD"
		if head.Name != "HEAD" {
			label = fmt.Sprintf("HEAD -> %s", head.Name)
		}
		labels[head.Oid] = append([]string{label}, labels[head.Oid]...)
	}
	return labels
}
