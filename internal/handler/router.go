package handler

import (
	"net/http"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// System endpoints
	mux.HandleFunc("/health", h.HandleHealthCheck)

	// Filesystem endpoints
	mux.HandleFunc("/api/fs/write", h.HandleWriteFile)
	mux.HandleFunc("/api/fs/read", h.HandleReadFile)
	mux.HandleFunc("/api/fs/exists", h.HandleExists)
	mux.HandleFunc("/api/fs/readdir", h.HandleReadDir)
	mux.HandleFunc("/api/fs/mkdir", h.HandleMkdir)
	mux.HandleFunc("/api/fs/remove", h.HandleRemove)
	mux.HandleFunc("/api/fs/stat", h.HandleStat)
	mux.HandleFunc("/api/fs/lstat", h.HandleLstat)
	mux.HandleFunc("/api/fs/symlink", h.HandleSymlink)
	mux.HandleFunc("/api/fs/readlink", h.HandleReadLink)

	// Key-value endpoints
	mux.HandleFunc("/api/kv/set", h.HandleKVSet)
	mux.HandleFunc("/api/kv/get", h.HandleKVGet)
	mux.HandleFunc("/api/kv/delete", h.HandleKVDelete)
	mux.HandleFunc("/api/kv/exists", h.HandleKVExists)
	mux.HandleFunc("/api/kv/scan", h.HandleKVScan)

	// Tool-call audit endpoints
	mux.HandleFunc("/api/tools/start", h.HandleToolStart)
	mux.HandleFunc("/api/tools/success", h.HandleToolSuccess)
	mux.HandleFunc("/api/tools/error", h.HandleToolError)
	mux.HandleFunc("/api/tools/record", h.HandleToolRecord)
	mux.HandleFunc("/api/tools/get", h.HandleToolGet)
	mux.HandleFunc("/api/tools/list", h.HandleToolList)
	mux.HandleFunc("/api/tools/stats", h.HandleToolStats)
}
