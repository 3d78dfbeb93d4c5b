package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// WebModule 在根分组上挂载自己的页面路由
type WebModule interface{ MountWeb(*gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂），不实现默认 100
type prioritizer interface{ Priority() int }

func mountAll(g *gin.RouterGroup, mods []WebModule) {
	mods = append([]WebModule(nil), mods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountWeb(g)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
