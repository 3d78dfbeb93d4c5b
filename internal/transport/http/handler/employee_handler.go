package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gin-gorm-employees/internal/domain"
	resp "gin-gorm-employees/internal/transport/http/response"
	"gin-gorm-employees/internal/transport/http/view"
)

const (
	RouteList   = "/Employee/List"
	RouteNew    = "/Employee/New"
	RouteEdit   = "/Employee/Edit"
	RouteDelete = "/Employee/Delete"
)

// employeeForm 是表单绑定的形状；id 只在编辑时提交
type employeeForm struct {
	ID       int64   `form:"id"`
	FullName string  `form:"full_name"`
	Email    string  `form:"email"`
	Position string  `form:"position"`
	Salary   float64 `form:"salary"`
	HireDate string  `form:"hire_date"`
}

func (f employeeForm) toEmployee() (domain.Employee, error) {
	e := domain.Employee{
		ID:       f.ID,
		FullName: strings.TrimSpace(f.FullName),
		Email:    strings.TrimSpace(f.Email),
		Position: strings.TrimSpace(f.Position),
		Salary:   f.Salary,
	}
	if s := strings.TrimSpace(f.HireDate); s != "" {
		t, err := time.Parse(view.DateLayout, s)
		if err != nil {
			return e, errors.Wrapf(domain.ErrValidation, "hire_date %q", s)
		}
		e.HireDate = &t
	}
	return e, nil
}

// EmployeeHandler 每个请求只持有请求内的引用，不跨请求保存状态
type EmployeeHandler struct {
	repo domain.EmployeeRepository
	log  *zap.Logger
}

func NewEmployeeHandler(repo domain.EmployeeRepository, l *zap.Logger) *EmployeeHandler {
	return &EmployeeHandler{repo: repo, log: l}
}

func (h *EmployeeHandler) Priority() int { return 10 }

func (h *EmployeeHandler) MountWeb(r *gin.RouterGroup) {
	r.GET("/", redirectToList)
	g := r.Group("/Employee")
	g.GET("", redirectToList)
	g.GET("/List", h.List)
	g.GET("/New", h.NewForm)
	g.POST("/New", h.Create)
	g.GET("/Edit", h.EditForm)
	g.GET("/Edit/:id", h.EditForm)
	g.POST("/Edit", h.Update)
	g.POST("/Delete", h.Delete)
	g.POST("/Delete/:id", h.Delete)
}

func (h *EmployeeHandler) List(c *gin.Context) {
	list, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "list.html", gin.H{"Title": "Employees", "Employees": list})
}

func (h *EmployeeHandler) NewForm(c *gin.Context) {
	c.HTML(http.StatusOK, "form.html", gin.H{
		"Title":    "New employee",
		"Action":   RouteNew,
		"IsEdit":   false,
		"Employee": domain.Employee{},
	})
}

func (h *EmployeeHandler) Create(c *gin.Context) {
	e, err := bindEmployee(c)
	if err != nil {
		fail(c, err)
		return
	}
	id, err := h.repo.Insert(c.Request.Context(), &e)
	if err != nil {
		fail(c, err)
		return
	}
	h.log.Info("employee created", zap.Int64("id", id))
	c.Redirect(http.StatusFound, RouteList)
}

func (h *EmployeeHandler) EditForm(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "form.html", gin.H{
		"Title":    "Edit employee",
		"Action":   RouteEdit,
		"IsEdit":   true,
		"Employee": e,
	})
}

func (h *EmployeeHandler) Update(c *gin.Context) {
	e, err := bindEmployee(c)
	if err != nil {
		fail(c, err)
		return
	}
	if e.ID == 0 {
		if e.ID, err = idParam(c); err != nil {
			fail(c, err)
			return
		}
	}
	if err := h.repo.Update(c.Request.Context(), &e); err != nil {
		fail(c, err)
		return
	}
	h.log.Info("employee updated", zap.Int64("id", e.ID))
	c.Redirect(http.StatusFound, RouteList)
}

// Delete 先确认记录存在，再删除
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.repo.GetByID(ctx, id); err != nil {
		fail(c, err)
		return
	}
	if err := h.repo.Delete(ctx, id); err != nil {
		fail(c, err)
		return
	}
	h.log.Info("employee deleted", zap.Int64("id", id))
	c.Redirect(http.StatusFound, RouteList)
}

func bindEmployee(c *gin.Context) (domain.Employee, error) {
	var f employeeForm
	if err := c.ShouldBindWith(&f, binding.Form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Employee{}, resp.ErrBodyTooLarge
		}
		return domain.Employee{}, errors.Wrap(domain.ErrValidation, err.Error())
	}
	return f.toEmployee()
}

// idParam 依次从路径、查询串、表单中取 id
func idParam(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	if raw == "" {
		raw = c.PostForm("id")
	}
	if raw == "" {
		return 0, errors.Wrap(domain.ErrValidation, "missing id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(domain.ErrValidation, "invalid id %q", raw)
	}
	return id, nil
}

// fail 不做转换，交给 ErrorPages 中间件
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func redirectToList(c *gin.Context) { c.Redirect(http.StatusFound, RouteList) }
