package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SceneInfo describes a scene that can be rendered by name
type SceneInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Group       string `json:"group"`
	Type        string `json:"type"`               // "builtin" or "file"
	FilePath    string `json:"filePath,omitempty"` // file scenes only
}

// SceneGroup is a named set of scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

const builtinGroup = "Built-in Scenes"

// ListBuiltinScenes returns the scenes constructed in code
func ListBuiltinScenes() []SceneInfo {
	scenes := make([]SceneInfo, 0, len(builtins))
	for _, id := range sortedKeys(builtins) {
		scenes = append(scenes, SceneInfo{
			ID:          id,
			Name:        titleCase(id),
			Description: builtins[id].description,
			Group:       builtinGroup,
			Type:        "builtin",
		})
	}
	return scenes
}

// ListFileScenes scans dir for JSON scene descriptions. A missing directory
// is not an error.
func ListFileScenes(dir string) ([]SceneInfo, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan scenes directory: %w", err)
	}

	var scenes []SceneInfo
	for _, path := range files {
		info, err := readSceneInfo(path)
		if err != nil {
			logger.Warningf("skipping %s: %v", path, err)
			continue
		}
		scenes = append(scenes, info)
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Name < scenes[j].Name })
	return scenes, nil
}

// readSceneInfo decodes only the header fields of a scene file
func readSceneInfo(path string) (SceneInfo, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info := SceneInfo{
		ID:       "file:" + base,
		Name:     titleCase(base),
		Group:    "Scene Files",
		Type:     "file",
		FilePath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	var header struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Group       string `json:"group"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return info, err
	}
	if header.Name != "" {
		info.Name = header.Name
	}
	if header.Group != "" {
		info.Group = header.Group
	}
	info.Description = header.Description
	return info, nil
}

// ListAllScenes returns built-in and file scenes grouped by category, with
// the built-in group first and the others in alphabetical order
func ListAllScenes(dir string) ([]SceneGroup, error) {
	fileScenes, err := ListFileScenes(dir)
	if err != nil {
		return nil, err
	}

	groupMap := make(map[string][]SceneInfo)
	for _, s := range append(ListBuiltinScenes(), fileScenes...) {
		groupMap[s.Group] = append(groupMap[s.Group], s)
	}

	groups := []SceneGroup{{Name: builtinGroup, Scenes: groupMap[builtinGroup]}}
	for _, name := range sortedKeys(groupMap) {
		if name != builtinGroup {
			groups = append(groups, SceneGroup{Name: name, Scenes: groupMap[name]})
		}
	}
	return groups, nil
}

// Resolve turns a built-in scene name or a JSON file path into a scene
func Resolve(nameOrPath string, reg *Registry) (*Scene, error) {
	if b, ok := builtins[nameOrPath]; ok {
		return b.create(), nil
	}
	if _, err := os.Stat(nameOrPath); err == nil {
		return LoadFile(nameOrPath, reg)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return nil, fmt.Errorf("scene %q: %w: not a built-in scene (%s) or a readable file",
		nameOrPath, ErrUnknownType, strings.Join(sortedKeys(builtins), ", "))
}

// titleCase converts a file-style name to title case, "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
