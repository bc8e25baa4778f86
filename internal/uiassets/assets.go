package uiassets

import (
	"embed"
	"io/fs"
)

// static 目录存放内置的前端页面，整站随二进制分发，无需单独部署静态资源。
//
//go:embed all:static
var embedded embed.FS

func FS() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		return embedded
	}
	return sub
}
