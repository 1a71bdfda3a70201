package dto

import "sw360-console/listing"

// PageDTO는 SW360 의 page 객체를 그대로 옮긴다. number 는 0부터 시작한다.
type PageDTO struct {
	Size          int `json:"size" example:"10"`
	TotalElements int `json:"totalElements" example:"42"`
	TotalPages    int `json:"totalPages" example:"5"`
	Number        int `json:"number" example:"0"`
}

// QueryDTO는 조회에 사용된 pageable 파라미터이다.
type QueryDTO struct {
	Page        int    `json:"page" example:"0"`
	PageEntries int    `json:"page_entries" example:"10"`
	Sort        string `json:"sort" example:"name,asc"`
}

// ListResponseDTO는 /api/v1/{resource} 응답이다.
type ListResponseDTO struct {
	Resource string            `json:"resource" example:"components"`
	Rows     any               `json:"rows"`
	Page     PageDTO           `json:"page"`
	Query    QueryDTO          `json:"query"`
	Filters  map[string]string `json:"filters"`
}

// ResourceListDTO는 /api/v1/resources 응답이다.
type ResourceListDTO struct {
	Resources []ResourceDTO `json:"resources"`
}

type ResourceDTO struct {
	Name    string   `json:"name" example:"components"`
	Title   string   `json:"title" example:"Components"`
	Filters []string `json:"filters"`
}

func NewPageDTO(m listing.PaginationMeta) PageDTO {
	return PageDTO{Size: m.Size, TotalElements: m.TotalElements, TotalPages: m.TotalPages, Number: m.Number}
}

func NewQueryDTO(q listing.PageableQuery) QueryDTO {
	return QueryDTO{Page: q.Page, PageEntries: q.PageEntries, Sort: q.Sort}
}
