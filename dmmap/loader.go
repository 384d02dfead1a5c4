package dmmap

import "os"

// Load reads and parses a .dmm file from disk.
func Load(path string) (*DreamMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// LoadAll parses every path in paths, skipping (and collecting, rather
// than aborting on) any file that fails to read or parse — one bad map
// among several included files shouldn't sink the whole compile, the
// same tolerance spec.md §6 gives a missing standard library.
func LoadAll(paths []string) (maps []*DreamMap, errs []error) {
	for _, p := range paths {
		m, err := Load(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		maps = append(maps, m)
	}
	return maps, errs
}
