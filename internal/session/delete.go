package session

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/parser"
)

// DeleteConnection removes every declaration of id from the documents under
// root, then reloads and re-imports the hierarchy. A document left with
// nothing but its version is deleted.
func (s *Session) DeleteConnection(id, root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := parser.HierarchyFiles(root, s.parserSubdir(), s.opts.Order)
	if err != nil {
		return err
	}

	found := false
	for _, f := range files {
		removed, err := removeDefinition(f, id)
		if err != nil {
			return err
		}
		if removed {
			found = true
			s.log.Info("removed definition", "id", id, "path", f)
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownDefinition, id)
	}

	s.parser.Reset()
	if err := s.parser.LoadHierarchy(root); err != nil {
		return err
	}
	_, err = s.importLocked()
	return err
}

func (s *Session) parserSubdir() string {
	if s.opts.Subdir == "" {
		return parser.DefaultSubdir
	}
	return s.opts.Subdir
}

// removeDefinition drops id from every section of one document. It reports
// whether the document declared id.
func removeDefinition(path, id string) (bool, error) {
	root, err := parser.ReadDocument(path)
	if err != nil || root == nil || root.Kind != yaml.MappingNode {
		return false, err
	}
	network := mappingValue(root, "network")
	if network == nil || network.Kind != yaml.MappingNode {
		return false, nil
	}

	removed := false
	var content []*yaml.Node
	for i := 0; i+1 < len(network.Content); i += 2 {
		key, val := network.Content[i], network.Content[i+1]
		if _, isSection := netdef.KindFromSection(key.Value); isSection && val.Kind == yaml.MappingNode {
			if dropKey(val, id) {
				removed = true
				if len(val.Content) == 0 {
					continue
				}
			}
		}
		content = append(content, key, val)
	}
	if !removed {
		return false, nil
	}
	network.Content = content

	if onlyVersion(network) {
		if err := os.Remove(path); err != nil {
			return true, fmt.Errorf("remove %s: %w", path, err)
		}
		return true, nil
	}

	data, err := yaml.Marshal(root)
	if err != nil {
		return true, fmt.Errorf("encode %s: %w", path, err)
	}
	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	if err := generate.WriteFile(filepath.Dir(path), filepath.Base(path), data, perm); err != nil {
		return true, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func dropKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return true
		}
	}
	return false
}

func onlyVersion(network *yaml.Node) bool {
	for i := 0; i < len(network.Content); i += 2 {
		if network.Content[i].Value != "version" {
			return false
		}
	}
	return true
}
