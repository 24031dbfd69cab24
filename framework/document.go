package framework

import (
	"encoding/json"
	"fmt"
	"strings"
)

// catalog is the decoded, in-memory representation of one framework's
// hierarchy. It is immutable after decoding.
type catalog struct {
	frameworkID string
	controls    []Control
	functions   []Function
	categories  []Category
	byID        map[string]int // control id -> index into controls
}

// control looks up a control by id.
func (c *catalog) control(id string) (Control, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Control{}, false
	}
	return c.controls[i], true
}

// Catalog documents arrive in one of three raw shapes. Shape detection is
// structural: each shape is identified by its discriminating top-level keys
// and decoded through its own typed intermediate representation.
//
//   - elements: {"response": {"elements": {"elements": [...]}}} where each
//     element carries an element_type tag (function/category/subcategory or
//     family/control) and hierarchy is reassembled from identifier prefixes
//   - nested:   {"functions": [{"categories": [{"subcategories": [...]}]}]}
//   - flat:     {"subcategories": [...], "categories": [...], "functions": [...]}
//     or {"controls": [...]} with inline family linkage
type shapeProbe struct {
	Response      *elementsEnvelope  `json:"response"`
	Functions     []json.RawMessage  `json:"functions"`
	Categories    []flatCategory     `json:"categories"`
	Subcategories []flatSubcategory  `json:"subcategories"`
	Controls      []flatControl      `json:"controls"`
}

type elementsEnvelope struct {
	Elements *elementsBody `json:"elements"`
}

type elementsBody struct {
	Elements []rawElement `json:"elements"`
}

// rawElement is one entry of the flat elements shape.
type rawElement struct {
	ElementType            string   `json:"element_type"`
	ElementIdentifier      string   `json:"element_identifier"`
	Title                  string   `json:"title"`
	Text                   string   `json:"text"`
	ImplementationExamples []string `json:"implementation_examples"`
	InformativeReferences  []string `json:"informative_references"`
	Keywords               []string `json:"keywords"`
}

// nestedFunction is one entry of the nested shape.
type nestedFunction struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Categories  []nestedCategory `json:"categories"`
}

type nestedCategory struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Subcategories []flatSubcategory `json:"subcategories"`
}

// flatSubcategory is a subcategory entry of the flat or nested shapes.
type flatSubcategory struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	CategoryID             string   `json:"category_id"`
	ImplementationExamples []string `json:"implementation_examples"`
	InformativeReferences  []string `json:"informative_references"`
	Keywords               []string `json:"keywords"`
}

// flatCategory is a category entry of the flat shape.
type flatCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FunctionID  string `json:"function_id"`
}

// flatFunction is a function entry of the flat shape.
type flatFunction struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// flatControl is a control entry of the controls-with-family shape.
type flatControl struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	FamilyID               string   `json:"family_id"`
	FamilyName             string   `json:"family_name"`
	ImplementationExamples []string `json:"implementation_examples"`
	InformativeReferences  []string `json:"informative_references"`
	Keywords               []string `json:"keywords"`
}

// decodeCatalog sniffs the document shape and decodes it into a catalog.
// Undecodable JSON is a hard error; unknown identifiers inside a decodable
// document degrade to empty parent linkage instead of failing.
func decodeCatalog(data []byte, frameworkID string) (*catalog, error) {
	var probe shapeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding catalog for %s: %w", frameworkID, err)
	}

	var (
		c   *catalog
		err error
	)
	switch {
	case probe.Response != nil && probe.Response.Elements != nil:
		c = decodeElements(probe.Response.Elements.Elements, frameworkID)
	case len(probe.Subcategories) > 0:
		c, err = decodeFlat(data, frameworkID)
	case len(probe.Functions) > 0:
		c, err = decodeNested(data, frameworkID)
	case len(probe.Controls) > 0:
		c = decodeControls(probe.Controls, frameworkID)
	default:
		// Structurally valid JSON with none of the known discriminators.
		return nil, fmt.Errorf("catalog for %s matches no known document shape", frameworkID)
	}
	if err != nil {
		return nil, err
	}

	c.byID = make(map[string]int, len(c.controls))
	for i, ctrl := range c.controls {
		c.byID[ctrl.ID] = i
	}
	return c, nil
}

// decodeElements reassembles hierarchy from the flat elements shape.
// The element_type vocabulary decides the hierarchy style: subcategories hang
// off dot-segmented categories and functions, controls hang off hyphenated
// families.
func decodeElements(elements []rawElement, frameworkID string) *catalog {
	functions := make(map[string]rawElement)
	categories := make(map[string]rawElement)
	families := make(map[string]rawElement)

	for _, e := range elements {
		switch e.ElementType {
		case "function":
			functions[e.ElementIdentifier] = e
		case "category":
			categories[e.ElementIdentifier] = e
		case "family":
			families[e.ElementIdentifier] = e
		}
	}

	c := &catalog{frameworkID: frameworkID}

	for id, e := range functions {
		c.functions = append(c.functions, Function{ID: id, Name: e.Title, Description: e.Text})
	}
	for id, e := range categories {
		c.categories = append(c.categories, Category{
			ID:          id,
			Name:        e.Title,
			Description: e.Text,
			FunctionID:  functionPrefix(id),
		})
	}
	for id, e := range families {
		c.functions = append(c.functions, Function{ID: id, Name: e.Title, Description: e.Text})
		c.categories = append(c.categories, Category{ID: id, Name: e.Title, Description: e.Text, FunctionID: id})
	}

	for _, e := range elements {
		switch e.ElementType {
		case "subcategory":
			subID := e.ElementIdentifier
			catID := categoryPrefix(subID)
			cat := categories[catID]
			funcID := functionPrefix(catID)
			fn := functions[funcID]

			c.controls = append(c.controls, Control{
				ID:                     subID,
				Name:                   titleOr(e.Title, subID),
				Description:            e.Text,
				FrameworkID:            frameworkID,
				FunctionID:             funcID,
				FunctionName:           titleOr(fn.Title, funcID),
				CategoryID:             catID,
				CategoryName:           titleOr(cat.Title, catID),
				ImplementationExamples: e.ImplementationExamples,
				InformativeReferences:  e.InformativeReferences,
				Keywords:               e.Keywords,
			})
		case "control":
			ctrlID := e.ElementIdentifier
			familyID := familyPrefix(ctrlID)
			fam := families[familyID]

			c.controls = append(c.controls, Control{
				ID:                     ctrlID,
				Name:                   titleOr(e.Title, ctrlID),
				Description:            e.Text,
				FrameworkID:            frameworkID,
				FunctionID:             familyID,
				FunctionName:           titleOr(fam.Title, familyID),
				CategoryID:             familyID,
				CategoryName:           titleOr(fam.Title, familyID),
				ImplementationExamples: e.ImplementationExamples,
				InformativeReferences:  e.InformativeReferences,
				Keywords:               e.Keywords,
			})
		}
	}

	return c
}

// flatDocument is the typed intermediate representation of the flat shape.
type flatDocument struct {
	Functions     []flatFunction    `json:"functions"`
	Categories    []flatCategory    `json:"categories"`
	Subcategories []flatSubcategory `json:"subcategories"`
}

func decodeFlat(data []byte, frameworkID string) (*catalog, error) {
	var doc flatDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding flat catalog for %s: %w", frameworkID, err)
	}

	functions := make(map[string]flatFunction, len(doc.Functions))
	categories := make(map[string]flatCategory, len(doc.Categories))

	c := &catalog{frameworkID: frameworkID}
	for _, f := range doc.Functions {
		functions[f.ID] = f
		c.functions = append(c.functions, Function{ID: f.ID, Name: f.Name, Description: f.Description})
	}
	for _, cat := range doc.Categories {
		categories[cat.ID] = cat
		c.categories = append(c.categories, Category{
			ID: cat.ID, Name: cat.Name, Description: cat.Description, FunctionID: cat.FunctionID,
		})
	}

	for _, sub := range doc.Subcategories {
		cat := categories[sub.CategoryID]
		fn := functions[cat.FunctionID]

		c.controls = append(c.controls, Control{
			ID:                     sub.ID,
			Name:                   titleOr(sub.Name, sub.ID),
			Description:            sub.Description,
			FrameworkID:            frameworkID,
			FunctionID:             cat.FunctionID,
			FunctionName:           titleOr(fn.Name, cat.FunctionID),
			CategoryID:             sub.CategoryID,
			CategoryName:           titleOr(cat.Name, sub.CategoryID),
			ImplementationExamples: sub.ImplementationExamples,
			InformativeReferences:  sub.InformativeReferences,
			Keywords:               sub.Keywords,
		})
	}

	return c, nil
}

// nestedDocument is the typed intermediate representation of the nested shape.
type nestedDocument struct {
	Functions []nestedFunction `json:"functions"`
}

func decodeNested(data []byte, frameworkID string) (*catalog, error) {
	var doc nestedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding nested catalog for %s: %w", frameworkID, err)
	}

	c := &catalog{frameworkID: frameworkID}
	for _, fn := range doc.Functions {
		c.functions = append(c.functions, Function{ID: fn.ID, Name: fn.Name, Description: fn.Description})

		for _, cat := range fn.Categories {
			c.categories = append(c.categories, Category{
				ID: cat.ID, Name: cat.Name, Description: cat.Description, FunctionID: fn.ID,
			})

			for _, sub := range cat.Subcategories {
				c.controls = append(c.controls, Control{
					ID:                     sub.ID,
					Name:                   titleOr(sub.Name, sub.ID),
					Description:            sub.Description,
					FrameworkID:            frameworkID,
					FunctionID:             fn.ID,
					FunctionName:           titleOr(fn.Name, fn.ID),
					CategoryID:             cat.ID,
					CategoryName:           titleOr(cat.Name, cat.ID),
					ImplementationExamples: sub.ImplementationExamples,
					InformativeReferences:  sub.InformativeReferences,
					Keywords:               sub.Keywords,
				})
			}
		}
	}

	return c, nil
}

func decodeControls(controls []flatControl, frameworkID string) *catalog {
	c := &catalog{frameworkID: frameworkID}
	seenFamilies := make(map[string]bool)

	for _, ctrl := range controls {
		familyName := titleOr(ctrl.FamilyName, ctrl.FamilyID)
		if ctrl.FamilyID != "" && !seenFamilies[ctrl.FamilyID] {
			seenFamilies[ctrl.FamilyID] = true
			c.functions = append(c.functions, Function{ID: ctrl.FamilyID, Name: familyName})
			c.categories = append(c.categories, Category{ID: ctrl.FamilyID, Name: familyName, FunctionID: ctrl.FamilyID})
		}

		c.controls = append(c.controls, Control{
			ID:                     ctrl.ID,
			Name:                   titleOr(ctrl.Name, ctrl.ID),
			Description:            ctrl.Description,
			FrameworkID:            frameworkID,
			FunctionID:             ctrl.FamilyID,
			FunctionName:           familyName,
			CategoryID:             ctrl.FamilyID,
			CategoryName:           familyName,
			ImplementationExamples: ctrl.ImplementationExamples,
			InformativeReferences:  ctrl.InformativeReferences,
			Keywords:               ctrl.Keywords,
		})
	}

	return c
}

// categoryPrefix derives a category id from a subcategory id: the first two
// dot segments with any hyphenated ordinal stripped (e.g., "PR.AC-01" ->
// "PR.AC"). Identifiers without a dot degrade to an empty parent.
func categoryPrefix(subID string) string {
	parts := strings.SplitN(subID, ".", 3)
	if len(parts) < 2 {
		return ""
	}
	second := parts[1]
	if i := strings.Index(second, "-"); i > 0 {
		second = second[:i]
	}
	return parts[0] + "." + second
}

// functionPrefix derives a function id from a category id: the segment before
// the first dot (e.g., "PR.AC" -> "PR").
func functionPrefix(catID string) string {
	if i := strings.Index(catID, "."); i > 0 {
		return catID[:i]
	}
	return ""
}

// familyPrefix derives a family id from a control id: the substring before
// the first hyphen (e.g., "AC-2(1)" -> "AC").
func familyPrefix(ctrlID string) string {
	if i := strings.Index(ctrlID, "-"); i > 0 {
		return ctrlID[:i]
	}
	return ""
}

func titleOr(title, fallback string) string {
	if title != "" {
		return title
	}
	return fallback
}
