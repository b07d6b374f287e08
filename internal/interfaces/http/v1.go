package http

import (
	"github.com/labstack/echo/v4"
)

func v1Endpoint(
	ProgressHandler *ProgressHandler,
	DashboardHandler *DashboardHandler,
	PlaybackHandler *PlaybackHandler,
	CatalogHandler *CatalogHandler,
	jwtMiddleware echo.MiddlewareFunc,
	refreshMiddleware echo.MiddlewareFunc,
	requestIDMiddleware echo.MiddlewareFunc,
	traceLoggerMiddleware echo.MiddlewareFunc,
	scopeMiddleware echo.MiddlewareFunc,
) *endpoint {
	return &endpoint{
		apiVersion:  "api/v1",
		middlewares: []echo.MiddlewareFunc{requestIDMiddleware, traceLoggerMiddleware, jwtMiddleware},
		groups: []*apiGroup{
			{
				prefix:      "/courses",
				middlewares: []echo.MiddlewareFunc{refreshMiddleware, scopeMiddleware},
				routes: []*route{
					{"POST", "/:course_id/lessons/:lesson_id/heartbeat", ProgressHandler.HandleHeartbeat, nil},
					{"PUT", "/:course_id/lessons/:lesson_id/completion", ProgressHandler.HandleMarkCompleted, nil},
					{"GET", "/:course_id/lessons/:lesson_id/progress", ProgressHandler.HandleGetLessonProgress, nil},
					{"GET", "/:course_id/progress", ProgressHandler.HandleGetCourseSummary, nil},
				},
			},
			{
				prefix:      "/continue-learning",
				middlewares: []echo.MiddlewareFunc{refreshMiddleware, scopeMiddleware},
				routes: []*route{
					{"GET", "", DashboardHandler.HandleContinueLearning, nil},
				},
			},
			{
				prefix: "/catalog",
				routes: []*route{
					{"DELETE", "/courses/:course_id/cache", CatalogHandler.HandleInvalidateCourse, nil},
				},
			},
			{
				prefix: "/ws",
				routes: []*route{
					{"GET", "/playback", PlaybackHandler.HandlePlayback, nil},
				},
			},
		},
	}
}
