package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sw360-console/cmd/console/auth"
	"sw360-console/cmd/console/dto"
	"sw360-console/listing"
	"sw360-console/logger"
	"sw360-console/session"
)

// ListResourcesHandler godoc
// @Summary      조회 가능한 리소스 목록
// @Description  JSON API 로 조회할 수 있는 SW360 리소스와 각 리소스의 필터 파라미터를 돌려줍니다.
// @Tags         resources
// @Produce      json
// @Success      200  {object}  dto.ResourceListDTO
// @Router       /resources [get]
func ListResourcesHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := dto.ResourceListDTO{Resources: make([]dto.ResourceDTO, 0, len(env.Resources))}
		for _, r := range env.Resources {
			filters := make([]string, 0, len(r.Fields()))
			for _, f := range r.Fields() {
				filters = append(filters, f.Param)
			}
			out.Resources = append(out.Resources, dto.ResourceDTO{Name: r.Name(), Title: r.Title(), Filters: filters})
		}
		c.JSON(http.StatusOK, out)
	}
}

// APIListHandler godoc
// @Summary      리소스 목록 조회
// @Description  SW360 리소스 목록을 한 페이지 조회합니다. page 는 0부터 시작하며, page/page_entries/sort 외의 파라미터는 필터로 전달됩니다.
// @Tags         resources
// @Security     BearerAuth
// @Produce      json
// @Param        resource      path   string  true   "components, releases, packages, projects, vendors, licenses"
// @Param        page          query  int     false  "페이지 번호 (0부터, 기본 0)"
// @Param        page_entries  query  int     false  "페이지 크기 (기본 10)"
// @Param        sort          query  string  false  "정렬 (예: name,asc)"
// @Success      200  {object}  dto.ListResponseDTO
// @Failure      401  {object}  dto.ErrorResponseDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Failure      502  {object}  dto.ErrorResponseDTO
// @Router       /{resource} [get]
func APIListHandler(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c)
		if err != nil {
			auth.AbortWithUnauthorized(c, err)
			return
		}
		res, ok := env.Resource(c.Param("resource"))
		if !ok {
			c.JSON(http.StatusNotFound, dto.ErrorResponseDTO{Error: "unknown_resource"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), env.Backend.Timeout)
		defer cancel()
		cred := session.Credential{AccessToken: token}
		result, err := res.List(ctx, env.Client, cred, c.Request.URL.Query(), env.Listing)
		if err != nil {
			var be *listing.BackendError
			switch {
			case errors.Is(err, listing.ErrUnauthenticated):
				c.JSON(http.StatusUnauthorized, dto.ErrorResponseDTO{Error: "unauthenticated"})
			case errors.As(err, &be):
				c.JSON(http.StatusBadGateway, dto.ErrorResponseDTO{Error: be.Message})
			case errors.Is(err, context.DeadlineExceeded):
				c.JSON(http.StatusGatewayTimeout, dto.ErrorResponseDTO{Error: "backend_timeout"})
			default:
				logger.ErrorWithFields("api list failed", logger.Fields{
					"resource": res.Name(),
					"error":    err.Error(),
				})
				c.JSON(http.StatusBadGateway, dto.ErrorResponseDTO{Error: listing.GenericErrorMessage})
			}
			return
		}

		c.JSON(http.StatusOK, dto.ListResponseDTO{
			Resource: res.Name(),
			Rows:     result.Rows,
			Page:     dto.NewPageDTO(result.Meta),
			Query:    dto.NewQueryDTO(result.Query),
			Filters:  result.Filters,
		})
	}
}
