package routes

import (
	"time"

	"obratools/app"
	"obratools/controllers"
	"obratools/db"
	"obratools/models"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	repo := db.NewRepo(a.DB)
	sessions := a.Sessions()

	authCtl := controllers.NewAuthController(repo, sessions, a.Config)
	herramientaCtl := controllers.NewHerramientaController(repo, a.Hub)
	prestamoCtl := controllers.NewPrestamoController(repo, a.Hub)
	usuarioCtl := controllers.NewUsuarioController(repo, sessions)
	asistenciaCtl := controllers.NewAsistenciaController(repo)
	reporteCtl := controllers.NewReporteController(repo)
	sseCtl := controllers.NewSSEController(a.Hub)

	authMW := app.AuthRequired(a.Config.JWTSecret, sessions)
	adminMW := app.RequireRol(models.RolAdmin)
	capatazMW := app.RequireRol(models.RolCapataz, models.RolAdmin)
	seenMW := app.TouchLastSeen(repo, a.RDB, 5*time.Minute)

	// canal de push para los visores; no requiere token
	r.GET("/sse", sseCtl.Stream)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authCtl.Login)
		auth.POST("/logout", authMW, authCtl.Logout)
	}

	admin := r.Group("/api/admin", authMW, adminMW, seenMW)
	{
		admin.GET("/categorias", herramientaCtl.Categorias)

		admin.GET("/herramientas", herramientaCtl.List)
		admin.POST("/herramientas", herramientaCtl.Create)
		admin.GET("/herramientas/:id", herramientaCtl.Get)
		admin.PATCH("/herramientas/:id", herramientaCtl.UpdateCampos)
		admin.PATCH("/herramientas/:id/estado", herramientaCtl.SetEstado)
		admin.DELETE("/herramientas/:id", herramientaCtl.Delete)

		admin.GET("/roles", usuarioCtl.Roles)
		admin.GET("/usuarios", usuarioCtl.List)
		admin.POST("/usuarios", usuarioCtl.Create)
		admin.PATCH("/usuarios/:id", usuarioCtl.Update)
		admin.PATCH("/usuarios/:id/password", usuarioCtl.SetPassword)
		admin.PATCH("/usuarios/:id/estado", usuarioCtl.SetEstado)
		admin.DELETE("/usuarios/:id", usuarioCtl.Delete)

		admin.GET("/reportes/dashboard", reporteCtl.Dashboard)
		admin.GET("/reportes/asistencias", reporteCtl.Asistencias)
		admin.GET("/reportes/herramientas", reporteCtl.Herramientas)
		admin.GET("/reportes/consolidado", reporteCtl.Consolidado)
	}

	capataz := r.Group("/api/capataz", authMW, capatazMW, seenMW)
	{
		capataz.POST("/asistencia", asistenciaCtl.Entrada)
		capataz.PUT("/asistencia/salida/:usuario_id", asistenciaCtl.Salida)
		capataz.GET("/asistencias/:usuario_id", asistenciaCtl.Listar)

		capataz.GET("/herramientas", herramientaCtl.Buscar)
		capataz.GET("/herramientas/danadas", herramientaCtl.Danadas)
		capataz.PUT("/herramientas/usar/:id", herramientaCtl.Usar)
		capataz.PUT("/herramientas/devolver/:id", herramientaCtl.DevolverEstado)
		capataz.PUT("/herramientas/estado/:id", herramientaCtl.SetEstado)

		capataz.POST("/herramientas/prestar", prestamoCtl.Prestar)
		capataz.PUT("/herramientas/devolver", prestamoCtl.DevolverBatch)
		capataz.PUT("/herramientas/devolver-prestamo/:herramienta_id", prestamoCtl.DevolverUna)
		capataz.GET("/prestadas", prestamoCtl.Prestadas)
		capataz.GET("/historial/:capataz_id", prestamoCtl.Historial)

		capataz.GET("/usuarios", usuarioCtl.PorRol)
		capataz.GET("/trabajadores", usuarioCtl.Trabajadores)
	}

	trabajador := r.Group("/api/trabajador", authMW, seenMW)
	{
		trabajador.POST("/asistencia", asistenciaCtl.Entrada)
		trabajador.PUT("/asistencia/salida/:usuario_id", asistenciaCtl.Salida)
		trabajador.GET("/asistencias/:usuario_id", asistenciaCtl.Listar)
		trabajador.GET("/mis-herramientas/:usuario_id", prestamoCtl.MisHerramientas)
	}
}
