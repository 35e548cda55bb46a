// Package crm is the client-records spine: adding and looking up clients.
package crm

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/extract"
	"github.com/Ayejay3194/business-spine/internal/intent"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

// SpineName is the registry key for this spine.
const SpineName = "crm"

var patterns = []intent.Pattern{
	{Action: "add_client", All: []string{"add"}, Any: []string{"client", "customer", "contact"}, Confidence: 0.85},
	{Action: "lookup_client", All: []string{"client"}, Any: []string{"find", "lookup", "show", "get"}, Confidence: 0.8},
}

var namePattern = regexp.MustCompile(`(?i)(?:client|customer|contact)\s+([A-Za-z]+)`)

var fieldsByAction = map[string][]extract.Field{
	"add_client": {
		{Name: "email", Kind: extract.KindEmail, Required: true},
		{Name: "name", Kind: extract.KindText, Pattern: namePattern},
	},
	"lookup_client": {
		{Name: "email", Kind: extract.KindEmail, Required: true},
	},
}

// Client is one CRM record.
type Client struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
}

// Repository is the persistence boundary for clients.
type Repository interface {
	Add(ctx context.Context, client Client) (Client, error)
	FindByEmail(ctx context.Context, tenantID, email string) (Client, bool, error)
}

// MemoryRepository is an in-memory Repository for tests and development.
type MemoryRepository struct {
	mu      sync.RWMutex
	clients map[string]map[string]Client // tenantID -> email -> client
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		clients: make(map[string]map[string]Client),
	}
}

func (r *MemoryRepository) Add(ctx context.Context, client Client) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant := r.clients[client.TenantID]
	if tenant == nil {
		tenant = make(map[string]Client)
		r.clients[client.TenantID] = tenant
	}
	if _, exists := tenant[client.Email]; exists {
		return Client{}, fmt.Errorf("client %s already exists", client.Email)
	}

	client.ID = uuid.New().String()
	tenant[client.Email] = client
	return client, nil
}

func (r *MemoryRepository) FindByEmail(ctx context.Context, tenantID, email string) (Client, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[tenantID][email]
	return client, ok, nil
}

// Spine implements spine.Spine for client records.
type Spine struct {
	repo    Repository
	actions map[string]spine.ActionSpec
}

// New creates the CRM spine over a repository.
func New(repo Repository) *Spine {
	s := &Spine{repo: repo}
	s.actions = map[string]spine.ActionSpec{
		"add_client": {
			Name:         "add_client",
			Sensitivity:  domain.SensitivityLow,
			AllowedRoles: []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleStaff, domain.RoleAssistant, domain.RoleSystem},
			Tool:         "crm.add",
		},
		"lookup_client": {
			Name:         "lookup_client",
			Sensitivity:  domain.SensitivityLow,
			AllowedRoles: []domain.Role{domain.RoleOwner, domain.RoleAdmin, domain.RoleStaff, domain.RoleAccountant, domain.RoleAssistant, domain.RoleSystem},
			Tool:         "crm.lookup",
		},
	}
	return s
}

func (s *Spine) Name() string { return SpineName }

func (s *Spine) Detect(text string, rctx domain.RequestContext) []domain.Intent {
	return intent.Match(text, patterns)
}

func (s *Spine) Extract(it domain.Intent, text string, rctx domain.RequestContext) domain.Extraction {
	return extract.Run(fieldsByAction[it.Name], text, rctx)
}

func (s *Spine) Action(name string) (spine.ActionSpec, bool) {
	spec, ok := s.actions[name]
	return spec, ok
}

func (s *Spine) Tools() []tool.Tool {
	return []tool.Tool{
		tool.Func{ToolName: "crm.add", Fn: s.addTool},
		tool.Func{ToolName: "crm.lookup", Fn: s.lookupTool},
	}
}

func (s *Spine) addTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, _ := call.Input["email"].(string)
	if email == "" {
		return tool.Result{OK: false, Error: "adding a client requires an email"}, nil
	}
	name, _ := call.Input["name"].(string)

	client, err := s.repo.Add(ctx, Client{TenantID: call.Ctx.TenantID, Email: email, Name: name})
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("adding client: %v", err)}, nil
	}
	return tool.Result{OK: true, Data: client}, nil
}

func (s *Spine) lookupTool(ctx context.Context, call tool.Call) (tool.Result, error) {
	email, _ := call.Input["email"].(string)
	if email == "" {
		return tool.Result{OK: false, Error: "lookup requires an email"}, nil
	}

	client, found, err := s.repo.FindByEmail(ctx, call.Ctx.TenantID, email)
	if err != nil {
		return tool.Result{OK: false, Error: fmt.Sprintf("looking up client: %v", err)}, nil
	}
	if !found {
		return tool.Result{OK: false, Error: fmt.Sprintf("no client found for %s", email)}, nil
	}
	return tool.Result{OK: true, Data: client}, nil
}
