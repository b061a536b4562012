package domain

type Meal struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price"`
}

type MealOrder struct {
	MealID   int64 `json:"mealId"`
	Quantity int   `json:"qty"`
}

func DefaultMeals() []Meal {
	return []Meal{
		{ID: 1, Name: "Veg Meal", Price: 120},
		{ID: 2, Name: "Non-Veg Meal", Price: 150},
	}
}
