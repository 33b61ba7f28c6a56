package processor

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
)

// readNotaryDirectory derives the notary set from the watched JKS
// directory (spec §3, §4.F). Full Java KeyStore binary parsing is out of
// scope for this service (no JKS library exists anywhere in the example
// corpus to ground it on): each matching file contributes
// one validating notary whose identity is its base file name with the
// extension stripped, which is how NotaryInfo.Identity is used everywhere
// else in this package — as an opaque distinguished name, never parsed.
// Non-validating notaries only ever arrive through the admin API (spec
// §4.H, "Post notary (validating/non-validating)").
func readNotaryDirectory(dir, pattern string) ([]mapdoc.NotaryInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pattern != "" {
			matched, err := filepath.Match(pattern, e.Name())
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	notaries := make([]mapdoc.NotaryInfo, 0, len(names))
	for _, name := range names {
		identity := strings.TrimSuffix(name, filepath.Ext(name))
		notaries = append(notaries, mapdoc.NotaryInfo{Identity: identity, Validating: true})
	}
	return notaries, nil
}
