package room

import "math/rand"

// fruits is the category list a round's secret word is drawn from.
var fruits = []string{
	"Apple", "Banana", "Orange", "Grape", "Strawberry",
	"Watermelon", "Pineapple", "Mango", "Kiwi", "Peach",
	"Pear", "Cherry", "Blueberry", "Raspberry", "Lemon",
	"Lime", "Coconut", "Papaya", "Apricot", "Plum",
}

func randomFruit() string {
	return fruits[rand.Intn(len(fruits))]
}
