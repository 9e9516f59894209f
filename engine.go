package configurator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-configurator/pkg/activity"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

// Engine holds a product descriptor and the user's per-property choices and
// derives availability, validation and completion views from them.
//
// Derived views are memoized per selection version and are always consistent
// with the latest mutation. Mutations are serialized internally; callers
// sharing one engine across sessions still observe interleaved selections.
type Engine struct {
	mu         sync.Mutex
	cfg        engineConfig
	normalizer *Normalizer
	emitter    *activity.Emitter
	sessionID  string

	product  Product
	selected map[Slug]PropertyOption
	version  uint64

	cached        *analysis
	cachedVersion uint64
}

type analysis struct {
	exclusions    Exclusions
	available     []Property
	invalidCustom map[Slug]string
	invalid       map[Slug]string
	resolved      []Property
	complete      bool
}

// NewEngine constructs an engine with an empty descriptor.
func NewEngine(opts ...Option) *Engine {
	cfg := applyOptions(opts)
	sessionID := cfg.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Engine{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.registry, cfg.validate),
		emitter:    activity.NewEmitter(cfg.activityHooks, cfg.activityConfig),
		sessionID:  sessionID,
		selected:   map[Slug]PropertyOption{},
	}
}

// SessionID identifies the engine in activity events.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// LoadProduct normalizes product and replaces the held descriptor, clearing
// every selection. On error the previous state is left untouched.
func (e *Engine) LoadProduct(product Product) error {
	normalized, err := e.normalizer.Normalize(product)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.product = normalized
	e.selected = map[Slug]PropertyOption{}
	e.version++
	event := e.eventInput("", "")
	e.mu.Unlock()

	e.emit(activity.BuildProductLoadedEvent(event))
	return nil
}

// Product returns a copy of the loaded descriptor.
func (e *Engine) Product() Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.product.clone()
}

// Select records option as the explicit choice for property. Only the
// existence of property is validated; offering options from AvailableOptions
// is the caller's responsibility.
func (e *Engine) Select(property Slug, option PropertyOption) error {
	e.mu.Lock()
	if _, ok := e.product.Property(property); !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownProperty, property)
	}
	event := e.selectLocked(property, option)
	e.mu.Unlock()

	e.emit(activity.BuildSelectionUpdatedEvent(event))
	return nil
}

// SelectSlug selects the option of property matching slug. A composite slug
// matches the parametric option sharing its base name, and the selection
// carries the supplied composite slug with that option's constraint.
func (e *Engine) SelectSlug(property Slug, slug Slug) error {
	e.mu.Lock()
	target, ok := e.product.Property(property)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownProperty, property)
	}
	option, ok := matchOption(target, slug)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q for property %q", ErrUnknownOption, slug, property)
	}
	event := e.selectLocked(property, option)
	e.mu.Unlock()

	e.emit(activity.BuildSelectionUpdatedEvent(event))
	return nil
}

// selectLocked records option for property. e.mu must be held.
func (e *Engine) selectLocked(property Slug, option PropertyOption) activity.SelectionEventInput {
	e.selected[property] = option.clone()
	e.version++
	return e.eventInput(property, option.Slug)
}

func matchOption(property Property, slug Slug) (PropertyOption, bool) {
	if option, ok := property.Option(slug); ok {
		return option, true
	}
	if !IsComposite(slug) {
		return PropertyOption{}, false
	}
	base := Slug(ParseComposite(slug).Base)
	for _, option := range property.Options {
		if option.IsParametric() && Slug(option.DisplayValue()) == base {
			selected := option.clone()
			selected.Slug = slug
			return selected, true
		}
	}
	return PropertyOption{}, false
}

// Clear removes the explicit choice for property.
func (e *Engine) Clear(property Slug) error {
	e.mu.Lock()
	if _, ok := e.product.Property(property); !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownProperty, property)
	}
	previous, had := e.selected[property]
	delete(e.selected, property)
	e.version++
	event := e.eventInput(property, previous.Slug)
	e.mu.Unlock()

	if had {
		e.emit(activity.BuildSelectionClearedEvent(event))
	}
	return nil
}

// ResetSelection clears every explicit choice, keeping the descriptor.
func (e *Engine) ResetSelection() {
	e.mu.Lock()
	e.selected = map[Slug]PropertyOption{}
	e.version++
	event := e.eventInput("", "")
	e.mu.Unlock()

	e.emit(activity.BuildSelectionResetEvent(event))
}

// Selections returns a copy of the explicit choices.
func (e *Engine) Selections() map[Slug]PropertyOption {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[Slug]PropertyOption, len(e.selected))
	for property, option := range e.selected {
		out[property] = option.clone()
	}
	return out
}

// Exclusions returns the excluded options and incompatible properties for
// the current selection.
func (e *Engine) Exclusions() Exclusions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyze().exclusions.clone()
}

// ExcludedOptions returns, per property, the option slugs the current
// selection rules out.
func (e *Engine) ExcludedOptions() map[Slug]SlugSet {
	return e.Exclusions().ExcludedOptions
}

// IncompatibleProperties returns the conflict message of every property whose
// explicit choice collides with another one.
func (e *Engine) IncompatibleProperties() map[Slug]string {
	return e.Exclusions().IncompatibleProperties
}

// AvailableOptions returns every property with its excluded options removed.
func (e *Engine) AvailableOptions() []Property {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneProperties(e.analyze().available)
}

// OptionsFor returns the available options of property.
func (e *Engine) OptionsFor(property Slug) []PropertyOption {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.analyze().available {
		if p.Slug == property {
			return p.clone().Options
		}
	}
	return nil
}

// OnlyOption returns the sole available option of property when it is not
// parametric.
func (e *Engine) OnlyOption(property Slug) (PropertyOption, bool) {
	return onlyOption(e.OptionsFor(property))
}

func onlyOption(options []PropertyOption) (PropertyOption, bool) {
	if len(options) == 1 && !options[0].IsParametric() {
		return options[0], true
	}
	return PropertyOption{}, false
}

// InvalidCustomOptions maps properties whose parametric selection lacks
// values or falls outside its bounds to an "Expected ..." message.
func (e *Engine) InvalidCustomOptions() map[Slug]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneMessages(e.analyze().invalidCustom)
}

// InvalidSelection merges incompatible properties and invalid custom
// options; the custom option message wins for the same property.
func (e *Engine) InvalidSelection() map[Slug]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneMessages(e.analyze().invalid)
}

// IsAuthoritative reports whether the value of property is settled: it is
// valid and either explicitly chosen or left with at most one
// non-parametric option. Unknown properties are never authoritative.
func (e *Engine) IsAuthoritative(property Slug) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.analyze()
	if _, invalid := a.invalid[property]; invalid {
		return false
	}
	if _, chosen := e.selected[property]; chosen {
		return true
	}
	for _, p := range a.available {
		if p.Slug != property {
			continue
		}
		if len(p.Options) == 0 {
			return true
		}
		_, only := onlyOption(p.Options)
		return only
	}
	return false
}

// ResolvedProperties returns, in descriptor order, every property with its
// final option. It returns false when the selection is invalid or some
// property still needs a choice. Properties left without options are omitted.
func (e *Engine) ResolvedProperties() ([]Property, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a := e.analyze()
	if !a.complete {
		return nil, false
	}
	return cloneProperties(a.resolved), true
}

// IsComplete reports whether ResolvedProperties would succeed.
func (e *Engine) IsComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyze().complete
}

// analyze returns the derived views for the current version. Callers must
// hold e.mu.
func (e *Engine) analyze() *analysis {
	if e.cached != nil && e.cachedVersion == e.version {
		return e.cached
	}
	a := &analysis{}
	selected := e.selectedInOrder()
	a.exclusions = ResolveExclusions(e.product.Properties, e.product.Excludes, selected)
	a.available = availableOptions(e.product.Properties, a.exclusions)
	a.invalidCustom = invalidCustomOptions(selected)
	a.invalid = make(map[Slug]string, len(a.exclusions.IncompatibleProperties)+len(a.invalidCustom))
	for property, message := range a.exclusions.IncompatibleProperties {
		a.invalid[property] = message
	}
	for property, message := range a.invalidCustom {
		a.invalid[property] = message
	}
	a.resolved, a.complete = resolveProperties(a.available, e.selected, len(a.invalid) > 0)
	e.cached = a
	e.cachedVersion = e.version
	return a
}

func (e *Engine) selectedInOrder() []SelectedOption {
	out := make([]SelectedOption, 0, len(e.selected))
	seen := make(map[Slug]struct{}, len(e.selected))
	for _, property := range e.product.Properties {
		if option, ok := e.selected[property.Slug]; ok {
			out = append(out, SelectedOption{Property: property.Slug, Option: option})
			seen[property.Slug] = struct{}{}
		}
	}
	for property, option := range e.selected {
		if _, ok := seen[property]; !ok {
			out = append(out, SelectedOption{Property: property, Option: option})
		}
	}
	return out
}

func availableOptions(properties []Property, exclusions Exclusions) []Property {
	out := make([]Property, 0, len(properties))
	for _, property := range properties {
		excluded := exclusions.ExcludedOptions[property.Slug]
		available := property
		available.Options = make([]PropertyOption, 0, len(property.Options))
		for _, option := range property.Options {
			if excluded.Has(option.Slug) {
				continue
			}
			available.Options = append(available.Options, option)
		}
		out = append(out, available)
	}
	return out
}

// invalidCustomOptions validates parametric selections against their
// constraints. Supplied dimensions unknown to the constraint are ignored.
func invalidCustomOptions(selected []SelectedOption) map[Slug]string {
	out := map[Slug]string{}
	for _, entry := range selected {
		constraint := entry.Option.Constraint
		if constraint == nil {
			continue
		}
		composite := ParseComposite(entry.Option.Slug)
		invalid := len(composite.Values) < len(constraint.Dimensions)
		for _, value := range composite.Values {
			if invalid {
				break
			}
			dimension, ok := constraint.Dimension(value.Name)
			if !ok {
				continue
			}
			invalid = !dimension.Contains(value)
		}
		if invalid {
			out[entry.Property] = "Expected " + constraint.Describe()
		}
	}
	return out
}

func resolveProperties(available []Property, selected map[Slug]PropertyOption, invalid bool) ([]Property, bool) {
	if invalid {
		return nil, false
	}
	resolved := make([]Property, 0, len(available))
	for _, property := range available {
		if option, ok := selected[property.Slug]; ok {
			property.Options = []PropertyOption{option}
			resolved = append(resolved, property)
			continue
		}
		if option, ok := onlyOption(property.Options); ok {
			property.Options = []PropertyOption{option}
			resolved = append(resolved, property)
			continue
		}
		if len(property.Options) > 0 {
			return nil, false
		}
	}
	return resolved, true
}

func (e *Engine) eventInput(property Slug, option Slug) activity.SelectionEventInput {
	input := activity.SelectionEventInput{
		SessionID: e.sessionID,
		SKU:       e.product.SKU,
		Property:  string(property),
		Option:    string(option),
	}
	if e.emitter.Enabled() {
		complete := e.analyze().complete
		input.Complete = &complete
	}
	return input
}

func (e *Engine) emit(event activity.Event) {
	if !e.emitter.Enabled() {
		return
	}
	if err := e.emitter.Emit(context.Background(), event); err != nil && e.cfg.activityErrors != nil {
		e.cfg.activityErrors(err)
	}
}

func cloneProperties(properties []Property) []Property {
	out := make([]Property, len(properties))
	for i, property := range properties {
		out[i] = property.clone()
	}
	return out
}

func cloneMessages(messages map[Slug]string) map[Slug]string {
	out := make(map[Slug]string, len(messages))
	for property, message := range messages {
		out[property] = message
	}
	return out
}

// FilterOptions keeps options whose name contains search under Unicode case
// folding, ignoring surrounding whitespace. An empty search keeps everything.
func FilterOptions(options []PropertyOption, search string) []PropertyOption {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(search))
	if needle == "" {
		return append([]PropertyOption(nil), options...)
	}
	out := make([]PropertyOption, 0, len(options))
	for _, option := range options {
		if strings.Contains(fold.String(OptionName(option)), needle) {
			out = append(out, option)
		}
	}
	return out
}
