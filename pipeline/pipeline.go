package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auto_spec_builder/attachments"
	"auto_spec_builder/generator"
	"auto_spec_builder/store"

	"go.uber.org/zap"
)

// Pipeline runs one request end to end. It holds no per-request state, so a
// single value serves concurrent requests.
type Pipeline struct {
	agent  *generator.Agent
	store  *store.Store
	files  *attachments.FileStore
	logger *zap.Logger
}

func New(agent *generator.Agent, st *store.Store, files *attachments.FileStore, logger *zap.Logger) (*Pipeline, error) {
	if agent == nil || st == nil || files == nil {
		return nil, errors.New("pipeline needs an agent, a store and a file store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{agent: agent, store: st, files: files, logger: logger.Named("pipeline")}, nil
}

// StructureInput is a request to turn dictated text into a tree.
type StructureInput struct {
	OwnerID int64
	Text    string
	// Instructions, when non-blank, replaces the default instruction block.
	Instructions string
	// PromptID selects a saved prompt of the owner when Instructions is blank.
	PromptID int64
	DomainID string
}

// GenerateInput additionally names the project the new specification belongs to.
type GenerateInput struct {
	StructureInput
	ProjectID int64
}

// Structure generates and validates a tree without persisting anything.
func (p *Pipeline) Structure(ctx context.Context, in StructureInput) (generator.Tree, error) {
	if strings.TrimSpace(in.Text) == "" {
		return generator.Tree{}, fmt.Errorf("%w: text is required", generator.ErrValidation)
	}
	instructions, err := p.resolveInstructions(ctx, in)
	if err != nil {
		return generator.Tree{}, err
	}

	start := time.Now()
	tree, err := p.agent.Structure(ctx, generator.Request{
		Text:         in.Text,
		Instructions: instructions,
		DomainID:     in.DomainID,
	})
	if err != nil {
		p.logger.Warn("structure failed",
			zap.Int64("owner_id", in.OwnerID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return generator.Tree{}, err
	}
	return tree, nil
}

// Generate checks the project, structures the text and stores the result.
// Nothing is written unless generation and normalization both succeed.
func (p *Pipeline) Generate(ctx context.Context, in GenerateInput) (store.Specification, error) {
	if strings.TrimSpace(in.Text) == "" {
		return store.Specification{}, fmt.Errorf("%w: text is required", generator.ErrValidation)
	}
	if _, err := p.store.FindProjectOwnedBy(ctx, in.ProjectID, in.OwnerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Specification{}, store.ErrParentNotFound
		}
		return store.Specification{}, err
	}

	tree, err := p.Structure(ctx, in.StructureInput)
	if err != nil {
		return store.Specification{}, err
	}

	id, err := p.store.CreateFromTree(ctx, tree, in.OwnerID, in.ProjectID)
	if err != nil {
		return store.Specification{}, err
	}
	return p.store.Get(ctx, id, in.OwnerID)
}

// Create stores a caller-authored tree. A non-blank title overrides the tree's.
func (p *Pipeline) Create(ctx context.Context, ownerID, projectID int64, title string, tree generator.Tree) (store.Specification, error) {
	if t := strings.TrimSpace(title); t != "" {
		tree.Title = t
	}
	tree, err := generator.ValidateTree(tree)
	if err != nil {
		return store.Specification{}, err
	}
	id, err := p.store.CreateFromTree(ctx, tree, ownerID, projectID)
	if err != nil {
		return store.Specification{}, err
	}
	return p.store.Get(ctx, id, ownerID)
}

// Update replaces the whole hierarchy of a specification with tree.
func (p *Pipeline) Update(ctx context.Context, ownerID, specID int64, title string, tree generator.Tree) (store.Specification, error) {
	tree, err := generator.ValidateTree(tree)
	if err != nil {
		return store.Specification{}, err
	}
	if err := p.store.Replace(ctx, specID, ownerID, title, tree); err != nil {
		return store.Specification{}, err
	}
	return p.store.Get(ctx, specID, ownerID)
}

// Delete removes the specification and the files of its attachments.
func (p *Pipeline) Delete(ctx context.Context, ownerID, specID int64) error {
	locators, err := p.store.Delete(ctx, specID, ownerID)
	if err != nil {
		return err
	}
	p.files.RemoveAll(locators)
	return nil
}

// resolveInstructions picks the instruction override: literal text first,
// then the named saved prompt, then the owner's default prompt.
func (p *Pipeline) resolveInstructions(ctx context.Context, in StructureInput) (string, error) {
	if strings.TrimSpace(in.Instructions) != "" {
		return in.Instructions, nil
	}
	if in.PromptID != 0 {
		prompt, err := p.store.FindPromptOwnedBy(ctx, in.PromptID, in.OwnerID)
		if err != nil {
			return "", fmt.Errorf("prompt %d: %w", in.PromptID, err)
		}
		return prompt.Content, nil
	}
	prompt, err := p.store.FindDefaultPrompt(ctx, in.OwnerID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prompt.Content, nil
}
