package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/people/internal/export"
	"github.com/gogotex/people/internal/person"
	"github.com/gogotex/people/internal/person/service"
	"github.com/gogotex/people/pkg/logger"
)

// Handler serves the person API. Exporter may be nil when object storage is not configured.
type Handler struct {
	svc      service.Service
	exporter *export.Exporter
}

func New(svc service.Service, exporter *export.Exporter) *Handler {
	return &Handler{svc: svc, exporter: exporter}
}

// Register mounts the /api/people routes.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api/people")
	g.POST("", h.create)
	g.POST("/batch", h.createMany)
	g.POST("/export", h.export)
	g.GET("", h.find)
	g.PATCH("", h.findOneAndUpdate)
	g.DELETE("", h.deleteMany)
	g.GET("/:id", h.findByID)
	g.PUT("/:id", h.replace)
	g.POST("/:id/foods", h.addFood)
	g.DELETE("/:id", h.deleteByID)
}

type personRequest struct {
	Name          string   `json:"name"`
	Age           *int     `json:"age"`
	FavoriteFoods []string `json:"favoriteFoods"`
}

func (r personRequest) toPerson() *person.Person {
	return &person.Person{Name: r.Name, Age: r.Age, FavoriteFoods: r.FavoriteFoods}
}

type patchRequest struct {
	Name          *string  `json:"name"`
	Age           *int     `json:"age"`
	FavoriteFoods []string `json:"favoriteFoods"`
}

// writeError maps domain errors to 400 and everything else to 500.
func writeError(c *gin.Context, err error) {
	var verr *person.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, person.ErrInvalidID),
		errors.Is(err, person.ErrUnknownField),
		errors.Is(err, person.ErrMixedProjection),
		errors.Is(err, person.ErrNegativeLimit),
		errors.Is(err, person.ErrEmptyPatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// filterFromQuery reads name, food and age query parameters.
func filterFromQuery(c *gin.Context) (person.Filter, error) {
	f := person.Filter{Name: c.Query("name"), FavoriteFood: c.Query("food")}
	if v := c.Query("age"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return f, &person.ValidationError{Field: person.FieldAge, Err: err}
		}
		f.Age = &age
	}
	return f, nil
}

// queryFromRequest builds a chained query from filter, sort, limit and select parameters.
func queryFromRequest(c *gin.Context) (*person.Query, error) {
	f, err := filterFromQuery(c)
	if err != nil {
		return nil, err
	}
	q := person.Find(f).Sort(c.Query("sort")).Select(c.Query("select"))
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &person.ValidationError{Field: "limit", Err: err}
		}
		q.Limit(n)
	}
	return q, q.Err()
}

func (h *Handler) create(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.Create(c.Request.Context(), req.toPerson())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) createMany(c *gin.Context) {
	var req []personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := make([]*person.Person, 0, len(req))
	for _, r := range req {
		in = append(in, r.toPerson())
	}
	people, err := h.svc.CreateMany(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, people)
}

// find serves find-by-filter, find-one (first=true) and chained queries
// (any of sort, limit, select).
func (h *Handler) find(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("first") == "true" {
		f, err := filterFromQuery(c)
		if err != nil {
			writeError(c, err)
			return
		}
		p, err := h.svc.FindOne(ctx, f)
		if err != nil {
			writeError(c, err)
			return
		}
		if p == nil {
			notFound(c)
			return
		}
		c.JSON(http.StatusOK, p)
		return
	}

	var (
		people []*person.Person
		err    error
	)
	if c.Query("sort") != "" || c.Query("limit") != "" || c.Query("select") != "" {
		var q *person.Query
		if q, err = queryFromRequest(c); err == nil {
			people, err = h.svc.Exec(ctx, q)
		}
	} else {
		var f person.Filter
		if f, err = filterFromQuery(c); err == nil {
			people, err = h.svc.Find(ctx, f)
		}
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, people)
}

func (h *Handler) findByID(c *gin.Context) {
	p, err := h.svc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, p)
}

// replace loads the record, overwrites its fields and saves it back.
func (h *Handler) replace(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.UpdateByLoadSave(c.Request.Context(), c.Param("id"), func(p *person.Person) {
		p.Name = req.Name
		p.Age = req.Age
		p.FavoriteFoods = req.FavoriteFoods
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) addFood(c *gin.Context) {
	var req struct {
		Food string `json:"food" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.AddFavoriteFood(c.Request.Context(), c.Param("id"), req.Food)
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, p)
}

// findOneAndUpdate patches the first match; new=true returns the updated record.
func (h *Handler) findOneAndUpdate(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patch := person.Patch{Name: req.Name, Age: req.Age, FavoriteFoods: req.FavoriteFoods}
	opts := person.UpdateOptions{ReturnNew: c.Query("new") == "true"}
	p, err := h.svc.FindOneAndUpdate(c.Request.Context(), f, patch, opts)
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteByID(c *gin.Context) {
	p, err := h.svc.DeleteByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteMany(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.svc.DeleteMany(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) export(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export storage not configured"})
		return
	}
	q, err := queryFromRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.exporter.Export(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
