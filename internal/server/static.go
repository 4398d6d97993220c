package server

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed web
var embeddedStatic embed.FS

func staticHandler() (http.Handler, error) {
	sub, err := fs.Sub(embeddedStatic, "web")
	if err != nil {
		return nil, err
	}
	return http.FileServer(http.FS(sub)), nil
}
