package bootstrap

import (
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/soundbridge/remote-projects-backend/config"
	httpapi "github.com/soundbridge/remote-projects-backend/internal/api/http"
	apimw "github.com/soundbridge/remote-projects-backend/internal/api/http/middleware"
	"github.com/soundbridge/remote-projects-backend/internal/auth"
	authmw "github.com/soundbridge/remote-projects-backend/internal/auth/middleware"
	fileshttp "github.com/soundbridge/remote-projects-backend/internal/files/http"
	filessvc "github.com/soundbridge/remote-projects-backend/internal/files/service"
	msghttp "github.com/soundbridge/remote-projects-backend/internal/messages/http"
	msgsvc "github.com/soundbridge/remote-projects-backend/internal/messages/service"
	projhttp "github.com/soundbridge/remote-projects-backend/internal/projects/http"
	projsvc "github.com/soundbridge/remote-projects-backend/internal/projects/service"
	"github.com/soundbridge/remote-projects-backend/internal/users"
)

type RouterDeps struct {
	Config       *config.Config
	DB           *pgxpool.Pool
	Redis        *redis.Client
	FirebaseAuth *fbauth.Client // nil when running without Firebase

	UserRepo    *users.Repo
	ProjectSvc  *projsvc.ProjectService
	FileSvc     *filessvc.FileService
	FileCounter projhttp.FileCounter
	MessageSvc  *msgsvc.MessageService
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(apimw.RequestID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = dep.Config.Server.CORSOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders,
		"Authorization", "X-Request-Id", "X-User-Id", "X-User-Name")
	r.Use(cors.New(corsCfg))

	health := httpapi.NewHealthHandler("remote-projects-backend", dep.Config.App.Version, dep.DB, dep.Redis)
	health.RegisterRoutes(r)

	api := r.Group("/api/v1")
	if dep.FirebaseAuth != nil {
		api.Use(authmw.FirebaseAuth(dep.FirebaseAuth))
	}
	api.Use(auth.WithUser(dep.UserRepo))

	group := api.Group("/remote-projects")
	projhttp.Register(group, dep.ProjectSvc, dep.FileCounter)
	fileshttp.Register(group, dep.FileSvc, apimw.PerUserRateLimit(rate.Limit(5), 10))
	msghttp.Register(group, dep.MessageSvc)

	return r
}
