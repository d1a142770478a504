package memstore

import (
	"context"
	"slices"
	"sort"
	"time"

	"content-platform/internal/shared/model"
	"content-platform/internal/shared/storage"
)

// ============================================================================
// MemberStore
// ============================================================================

func (s *Store) CreateMember(ctx context.Context, member *model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[member.ID]; ok {
		return storage.ErrDuplicate
	}
	cp := *member
	s.members[member.ID] = &cp
	return nil
}

func (s *Store) ListMembers(ctx context.Context) ([]*model.Member, error) {
	return s.listMembers(func(*model.Member) bool { return true }), nil
}

func (s *Store) ListMembersByProject(ctx context.Context, project string) ([]*model.Member, error) {
	return s.listMembers(func(m *model.Member) bool { return m.Project == project }), nil
}

func (s *Store) listMembers(keep func(*model.Member) bool) []*model.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []*model.Member{}
	for _, m := range s.members {
		if keep(m) {
			cp := *m
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name.LastName != result[j].Name.LastName {
			return result[i].Name.LastName < result[j].Name.LastName
		}
		return result[i].Name.FirstName < result[j].Name.FirstName
	})
	return result
}

// ============================================================================
// ProjectStore
// ============================================================================

func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.projectByName(project.Name) != nil {
		return storage.ErrDuplicate
	}
	s.projects[project.ID] = cloneProject(project)
	return nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Project, 0, len(s.projects))
	for _, p := range s.projects {
		result = append(result, cloneProject(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetProjectByName(ctx context.Context, name string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.projectByName(name)
	if p == nil {
		return nil, storage.ErrNotFound
	}
	return cloneProject(p), nil
}

func (s *Store) UpdateProject(ctx context.Context, name string, update model.ProjectUpdate) (*model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectByName(name)
	if p == nil {
		return nil, storage.ErrNotFound
	}
	if update.Name != nil {
		if other := s.projectByName(*update.Name); other != nil && other.ID != p.ID {
			return nil, storage.ErrDuplicate
		}
		p.Name = *update.Name
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.Members != nil {
		p.Members = slices.Clone(update.Members)
	}
	if update.IsActive != nil {
		p.IsActive = *update.IsActive
	}
	p.UpdatedAt = time.Now()
	return cloneProject(p), nil
}

func (s *Store) DeleteProject(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.projectByName(name)
	if p == nil {
		return storage.ErrNotFound
	}
	delete(s.projects, p.ID)
	return nil
}

func (s *Store) projectByName(name string) *model.Project {
	for _, p := range s.projects {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ============================================================================
// ResourceStore
// ============================================================================

func (s *Store) CreateResource(ctx context.Context, resource *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resource.ID]; ok {
		return storage.ErrDuplicate
	}
	cp := *resource
	s.resources[resource.ID] = &cp
	return nil
}

func (s *Store) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetResourceView(ctx context.Context, id string) (*model.ResourceView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.view(r), nil
}

func (s *Store) ListResourcesByCategory(ctx context.Context, main string) ([]*model.ResourceView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []*model.ResourceView{}
	for _, r := range s.resources {
		if r.Category.Main == main {
			result = append(result, s.view(r))
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Category.Sub != result[j].Category.Sub {
			return result[i].Category.Sub > result[j].Category.Sub
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) UpdateResource(ctx context.Context, id string, update model.ResourceUpdate) (*model.ResourceView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Title != nil {
		r.Title = *update.Title
	}
	if update.Description != nil {
		r.Description = *update.Description
	}
	if update.Category != nil {
		r.Category = *update.Category
	}
	if update.Author != nil {
		r.Author = *update.Author
	}
	if update.ResourceLink != nil {
		r.ResourceLink = *update.ResourceLink
	}
	if update.Document != nil {
		r.Document = *update.Document
	}
	r.UpdatedAt = time.Now()
	return s.view(r), nil
}

func (s *Store) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.resources, id)
	return nil
}

// view 填充所有者用户名，调用方需持有锁
func (s *Store) view(r *model.Resource) *model.ResourceView {
	owner := model.OwnerRef{ID: r.Owner}
	if u, ok := s.users[r.Owner]; ok {
		owner.Username = u.Username
	}
	return &model.ResourceView{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Author:       r.Author,
		Owner:        owner,
		ResourceLink: r.ResourceLink,
		Document:     r.Document,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ============================================================================
// SnapshotStore
// ============================================================================

func (s *Store) CreateSnapshot(ctx context.Context, snapshot *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snapshot.ID]; ok {
		return storage.ErrDuplicate
	}
	s.snapshots[snapshot.ID] = cloneSnapshot(snapshot)
	return nil
}

func (s *Store) ListSnapshots(ctx context.Context) ([]*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*model.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		result = append(result, cloneSnapshot(snap))
	}
	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(snap), nil
}

func (s *Store) UpdateSnapshot(ctx context.Context, id string, update model.SnapshotUpdate) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Title != nil {
		snap.Title = *update.Title
	}
	if update.Descriptions != nil {
		snap.Descriptions = slices.Clone(update.Descriptions)
	}
	if update.Hyperlinks != nil {
		snap.Hyperlinks = slices.Clone(update.Hyperlinks)
	}
	if update.Date != nil {
		snap.Date = *update.Date
	}
	if update.Project != nil {
		snap.Project = *update.Project
	}
	if update.Categories != nil {
		snap.Categories = slices.Clone(update.Categories)
	}
	if update.Contributors != nil {
		snap.Contributors = slices.Clone(update.Contributors)
	}
	snap.UpdatedAt = time.Now()
	return cloneSnapshot(snap), nil
}

func (s *Store) DeleteSnapshot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.snapshots, id)
	return nil
}

// cloneProject 深拷贝，切片不与存储内容共享底层数组
func cloneProject(p *model.Project) *model.Project {
	cp := *p
	cp.Members = slices.Clone(p.Members)
	return &cp
}

func cloneSnapshot(snap *model.Snapshot) *model.Snapshot {
	cp := *snap
	cp.Descriptions = slices.Clone(snap.Descriptions)
	cp.Hyperlinks = slices.Clone(snap.Hyperlinks)
	cp.Categories = slices.Clone(snap.Categories)
	cp.Contributors = slices.Clone(snap.Contributors)
	return &cp
}
