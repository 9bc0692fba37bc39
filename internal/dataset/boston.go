// Package dataset holds the hand-authored dataset sources the loader knows about.
package dataset

import (
	"fmt"

	"github.com/kailas-cloud/labkit/internal/domain"
)

// Source describes where a dataset lives and how its numeric rows are laid out.
type Source struct {
	Name   string
	URL    string
	Schema domain.Schema
}

// BostonHousingName identifies the Boston housing bundle in storage.
const BostonHousingName = "boston_housing"

// bostonHousing is the StatLib copy of the Harrison & Rubinfeld housing data:
// 506 records of 13 features plus the MEDV target, wrapped over two lines each.
var bostonHousing = Source{
	Name: BostonHousingName,
	URL:  "https://lib.stat.cmu.edu/datasets/boston",
	Schema: domain.Schema{Columns: []domain.Column{
		{Name: "CRIM", Description: "per capita crime rate by town"},
		{Name: "ZN", Description: "proportion of residential land zoned for lots over 25,000 sq.ft."},
		{Name: "INDUS", Description: "proportion of non-retail business acres per town"},
		{Name: "CHAS", Description: "Charles River dummy (1 if tract bounds river; 0 otherwise)"},
		{Name: "NOX", Description: "nitric oxides concentration (parts per 10 million)"},
		{Name: "RM", Description: "average number of rooms per dwelling"},
		{Name: "AGE", Description: "proportion of owner-occupied units built prior to 1940"},
		{Name: "DIS", Description: "weighted distances to five Boston employment centres"},
		{Name: "RAD", Description: "index of accessibility to radial highways"},
		{Name: "TAX", Description: "full-value property-tax rate per $10,000"},
		{Name: "PTRATIO", Description: "pupil–teacher ratio by town"},
		{Name: "B", Description: "1000*(Bk - 0.63)^2 where Bk is proportion of people of African American descent"},
		{Name: "LSTAT", Description: "% lower status of the population"},
		{Name: "MEDV", Description: "Median value of owner-occupied homes in $1000's (target)"},
	}},
}

// BostonHousing returns the Boston housing source. Each call returns a fresh
// copy; changing it does not affect later calls.
func BostonHousing() Source {
	return bostonHousing.clone()
}

// Lookup returns the source registered under name.
func Lookup(name string) (Source, error) {
	if name == BostonHousingName {
		return BostonHousing(), nil
	}
	return Source{}, fmt.Errorf("dataset %q: %w", name, domain.ErrNotFound)
}

func (s Source) clone() Source {
	s.Schema.Columns = append([]domain.Column(nil), s.Schema.Columns...)
	return s
}
