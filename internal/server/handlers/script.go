package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"

	"git.home.luguber.info/inful/nantrunner/internal/catalog"
	"git.home.luguber.info/inful/nantrunner/internal/discovery"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/script"
	"git.home.luguber.info/inful/nantrunner/internal/server/responses"
)

// ScriptSource is the part of the controller that owns the loaded script.
type ScriptSource interface {
	File() string
	Tree() *script.Tree
	LastLoad() *script.LoadResult
	Reload(ctx context.Context) error
}

// ScriptHandlers serves the loaded script and its catalog.
type ScriptHandlers struct {
	source       ScriptSource
	errorAdapter *rerrors.HTTPErrorAdapter
}

// NewScriptHandlers creates script handlers backed by source.
func NewScriptHandlers(source ScriptSource) *ScriptHandlers {
	return &ScriptHandlers{
		source:       source,
		errorAdapter: rerrors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleScript returns the classified views of the loaded script.
func (h *ScriptHandlers) HandleScript(w http.ResponseWriter, r *http.Request) {
	load := h.source.LastLoad()
	if load == nil || load.Tree == nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.NoScriptLoaded())
		return
	}
	resp := describeScript(load)
	if rev, ok := discovery.CurrentRevision(filepath.Dir(resp.File)); ok {
		resp.Revision = &responses.RevisionInfo{Branch: rev.Branch, Commit: rev.Commit}
	}
	h.write(w, r, http.StatusOK, resp)
}

// HandleTree returns the full node tree.
func (h *ScriptHandlers) HandleTree(w http.ResponseWriter, r *http.Request) {
	tree := h.source.Tree()
	if tree == nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.NoScriptLoaded())
		return
	}
	h.write(w, r, http.StatusOK, tree.Root)
}

// HandleReload parses the current script file again.
func (h *ScriptHandlers) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.source.Reload(r.Context()); err != nil {
		h.errorAdapter.WriteErrorResponse(w, err)
		return
	}
	load := h.source.LastLoad()
	resp := responses.ReloadResponse{File: h.source.File()}
	if load != nil {
		resp.Targets = len(load.Tree.AllTargets())
		resp.Skipped = len(load.Skipped)
	}
	h.write(w, r, http.StatusOK, resp)
}

// HandleCatalog renders the HTML target catalog.
func (h *ScriptHandlers) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	page, err := catalog.HTML(h.source.Tree())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.InternalError("failed to render catalog", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// HandleCatalogMarkdown returns the catalog source.
func (h *ScriptHandlers) HandleCatalogMarkdown(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(catalog.Markdown(h.source.Tree()))
}

func (h *ScriptHandlers) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSONPretty(w, r, status, v); err != nil {
		h.errorAdapter.WriteErrorResponse(w, rerrors.InternalError("failed to write script response", err))
	}
}

func describeScript(load *script.LoadResult) responses.ScriptResponse {
	tree := load.Tree
	resp := responses.ScriptResponse{
		File:           tree.File(),
		Project:        tree.Root.Attr(script.AttrName),
		DefaultTarget:  tree.Root.Attr("default"),
		Properties:     []responses.PropertyInfo{},
		PublicTargets:  targetInfos(tree.PublicTargets()),
		PrivateTargets: targetInfos(tree.PrivateTargets()),
		Includes:       []responses.IncludeInfo{},
		Files:          load.Files,
		LoadedIn:       float64(load.Duration.Microseconds()) / 1000,
	}
	for _, p := range tree.Properties() {
		resp.Properties = append(resp.Properties, responses.PropertyInfo{
			Element: p.Name,
			Name:    p.Attr(script.AttrName),
			Value:   p.Attr("value"),
			Line:    p.Line,
		})
	}
	for _, inc := range tree.Includes() {
		resp.Includes = append(resp.Includes, responses.IncludeInfo{
			BuildFile: inc.Attr(script.AttrBuildFile),
			Line:      inc.Line,
		})
	}
	for _, skipped := range load.Skipped {
		resp.Skipped = append(resp.Skipped, skipped.Error())
	}
	return resp
}

func targetInfos(nodes []*script.Node) []responses.TargetInfo {
	infos := make([]responses.TargetInfo, 0, len(nodes))
	for _, n := range nodes {
		infos = append(infos, responses.TargetInfo{
			Name:        n.Attr(script.AttrName),
			Description: n.Attr(script.AttrDescription),
			Depends:     n.Attr("depends"),
			Line:        n.Line,
		})
	}
	return infos
}
