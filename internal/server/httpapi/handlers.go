package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/reports"
	"github.com/dmitrijs2005/timekeeper/internal/timex"
	"github.com/gin-gonic/gin"
)

type credentials struct {
	Matricula string `json:"matricula"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

type userPatch struct {
	Matricula *string `json:"matricula"`
	Name      *string `json:"name"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
}

type userView struct {
	ID        int64       `json:"id"`
	Matricula string      `json:"matricula"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
}

func toView(u models.User) userView {
	return userView{ID: u.ID, Matricula: u.Matricula, Name: u.Name, Role: u.Role}
}

// bind decodes the JSON body, reporting a malformed one as a validation error.
func (s *HTTPServer) bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return false
	}
	return true
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// online answers whether this server is up and whether the primary is reachable.
func (s *HTTPServer) online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": true, "db_online": s.svc.Status.Available()})
}

func (s *HTTPServer) register(c *gin.Context) {
	var req credentials
	if !s.bind(c, &req) {
		return
	}
	if _, err := s.svc.Users.Register(c.Request.Context(), req.Matricula, req.Password, req.Name); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully!"})
}

func (s *HTTPServer) login(c *gin.Context) {
	var req credentials
	if !s.bind(c, &req) {
		return
	}
	res, err := s.svc.Users.Login(c.Request.Context(), req.Matricula, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": res.Token, "role": res.Role, "name": res.Name})
}

func (s *HTTPServer) punch(c *gin.Context) {
	var req models.PunchRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.svc.Punch.Punch(c.Request.Context(), mustIdentity(c).Matricula, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Punch recorded successfully!",
		"timestamp": timex.FormatSeconds(res.Timestamp),
		"queued":    res.Queued,
	})
}

func (s *HTTPServer) history(c *gin.Context) {
	views, err := s.svc.History.History(c.Request.Context(), mustIdentity(c).Matricula)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// sync always answers 200; failures travel in the errors list.
func (s *HTTPServer) sync(c *gin.Context) {
	res, err := s.svc.Sync.Reconcile(c.Request.Context(), mustIdentity(c).Matricula)
	if err != nil {
		s.logger.Error(c.Request.Context(), "sync failed", "error", err)
		res = &models.SyncResult{Errors: []string{err.Error()}}
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Sync finished. %d records sent.", res.Migrated),
		"migrated": res.Migrated,
		"errors":   res.Errors,
	})
}

func (s *HTTPServer) userReport(c *gin.Context) {
	sheet, err := s.svc.Reports.UserReport(c.Request.Context(), mustIdentity(c).Matricula, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.sendCSV(c, "my_records.csv", sheet)
}

func (s *HTTPServer) listUsers(c *gin.Context) {
	users, err := s.svc.Admin.ListUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toView(u))
	}
	c.JSON(http.StatusOK, views)
}

func (s *HTTPServer) createUser(c *gin.Context) {
	var req credentials
	if !s.bind(c, &req) {
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %v", common.ErrorValidation, err))
		return
	}
	u, err := s.svc.Admin.CreateUser(c.Request.Context(), req.Matricula, req.Password, req.Name, role)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toView(*u))
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid user id %q", common.ErrorValidation, c.Param("id"))
	}
	return id, nil
}

func (s *HTTPServer) updateUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req userPatch
	if !s.bind(c, &req) {
		return
	}
	patch := models.UserPatch{Matricula: req.Matricula, Name: req.Name, Password: req.Password}
	if req.Role != nil {
		role := models.Role(*req.Role)
		patch.Role = &role
	}
	u, err := s.svc.Admin.UpdateUser(c.Request.Context(), id, patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(*u))
}

func (s *HTTPServer) deleteUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.svc.Admin.DeleteUser(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (s *HTTPServer) bulkDelete(c *gin.Context) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if !s.bind(c, &req) {
		return
	}
	n, err := s.svc.Admin.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d deleted", n), "deleted": n})
}

// adminReport exports one user's records as CSV when user_id or matricula
// is given, otherwise a zip with one CSV per user.
func (s *HTTPServer) adminReport(c *gin.Context) {
	ctx := c.Request.Context()
	matricula := strings.TrimSpace(c.Query("matricula"))
	if raw := c.Query("user_id"); raw != "" && matricula == "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.fail(c, fmt.Errorf("%w: invalid user_id %q", common.ErrorValidation, raw))
			return
		}
		u, err := s.svc.Admin.GetUser(ctx, id)
		if err != nil {
			s.fail(c, err)
			return
		}
		matricula = u.Matricula
	}

	sheets, err := s.svc.Reports.AdminReport(ctx, matricula)
	if err != nil {
		s.fail(c, err)
		return
	}

	if matricula != "" {
		s.sendCSV(c, "report.csv", sheets[0])
		return
	}
	body, err := reports.Zip(sheets)
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, "admin_report.zip")
	c.Data(http.StatusOK, "application/zip", body)
}

func (s *HTTPServer) syncAll(c *gin.Context) {
	if err := s.svc.Sync.RefreshUsers(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User sync requested"})
}

func attachment(c *gin.Context, name string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

func (s *HTTPServer) sendCSV(c *gin.Context, name string, sheet models.Sheet) {
	var buf bytes.Buffer
	if err := reports.WriteCSV(&buf, sheet); err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, name)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
