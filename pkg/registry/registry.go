// Package registry is the session's source of truth for tracked short links.
//
// A Registry has a single owner and is not safe for concurrent use; the
// monitor keeps its own mirror and learns about changes through messages.
package registry

import (
	"fmt"
	"sort"
	"time"

	"redirect-mgmt-go/pkg/models"
)

type Registry struct {
	links     map[int]models.Link
	highWater int
	selected  int // 0 means nothing selected
}

func New() *Registry {
	return &Registry{links: make(map[int]models.Link)}
}

// Add stores link under the next id. Ids are never reused, even after the
// highest link is removed.
func (r *Registry) Add(link models.Link) models.Link {
	r.highWater++
	link.ID = r.highWater
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = link.CreatedAt
	}
	r.links[link.ID] = link
	return link
}

func (r *Registry) Get(id int) (models.Link, bool) {
	link, ok := r.links[id]
	return link, ok
}

// Remove deletes a link and clears the selection if it pointed at it.
func (r *Registry) Remove(id int) (models.Link, bool) {
	link, ok := r.links[id]
	if !ok {
		return models.Link{}, false
	}
	delete(r.links, id)
	if r.selected == id {
		r.selected = 0
	}
	return link, true
}

// Replace overwrites the target fields of an existing link.
func (r *Registry) Replace(id int, target, domain string) (models.Link, bool) {
	link, ok := r.links[id]
	if !ok {
		return models.Link{}, false
	}
	link.IntendedTarget = target
	link.ResolvedDomain = domain
	link.UpdatedAt = time.Now()
	r.links[id] = link
	return link, true
}

// ApplyRepair mirrors a monitor-side retarget onto the link with alias.
func (r *Registry) ApplyRepair(alias, target, domain string) (models.Link, bool) {
	link, ok := r.FindByAlias(alias)
	if !ok {
		return models.Link{}, false
	}
	return r.Replace(link.ID, target, domain)
}

func (r *Registry) FindByAlias(alias string) (models.Link, bool) {
	for _, link := range r.links {
		if link.Alias == alias {
			return link, true
		}
	}
	return models.Link{}, false
}

func (r *Registry) FindByShortURL(shortURL string) (models.Link, bool) {
	for _, link := range r.links {
		if link.ShortURL == shortURL {
			return link, true
		}
	}
	return models.Link{}, false
}

// List returns all links ordered by id.
func (r *Registry) List() []models.Link {
	out := make([]models.Link, 0, len(r.links))
	for _, link := range r.links {
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Len() int {
	return len(r.links)
}

func (r *Registry) Select(id int) error {
	if _, ok := r.links[id]; !ok {
		return fmt.Errorf("link (%d) is invalid", id)
	}
	r.selected = id
	return nil
}

// Selected returns the selected link, if any.
func (r *Registry) Selected() (models.Link, bool) {
	if r.selected == 0 {
		return models.Link{}, false
	}
	return r.Get(r.selected)
}
