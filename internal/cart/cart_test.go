package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/textilestore/internal/cart"
)

func item(id string, price int64, qty int32) cart.CartItem {
	return cart.CartItem{ID: id, Name: "Fabric " + id, PriceMinor: price, Quantity: qty, MOQ: 4}
}

func TestReduce_AddDistinctItems(t *testing.T) {
	state := cart.State{}
	state = cart.Reduce(state, cart.AddItem{Item: item("a", 100, 2)})
	state = cart.Reduce(state, cart.AddItem{Item: item("b", 50, 1)})
	state = cart.Reduce(state, cart.AddItem{Item: item("c", 10, 3)})

	require.Len(t, state.Items, 3)
	require.Equal(t, []string{"a", "b", "c"}, ids(state))
}

func TestReduce_AddRepeatedIDSumsQuantityAndKeepsPosition(t *testing.T) {
	state := cart.State{}
	state = cart.Reduce(state, cart.AddItem{Item: item("a", 100, 2)})
	state = cart.Reduce(state, cart.AddItem{Item: item("b", 50, 1)})
	state = cart.Reduce(state, cart.AddItem{Item: item("a", 100, 5)})

	require.Equal(t, []string{"a", "b"}, ids(state))
	require.Equal(t, int32(7), state.Items[0].Quantity)
	require.Equal(t, int32(1), state.Items[1].Quantity)
}

func TestReduce_AddAcceptsNonPositiveQuantity(t *testing.T) {
	state := cart.Reduce(cart.State{}, cart.AddItem{Item: item("a", 100, 0)})
	require.Len(t, state.Items, 1)
	require.Equal(t, int32(0), state.Items[0].Quantity)
}

func TestReduce_UpdateQuantity(t *testing.T) {
	base := cart.Reduce(cart.State{}, cart.AddItem{Item: item("a", 100, 2)})

	updated := cart.Reduce(base, cart.UpdateQuantity{ID: "a", Quantity: 9})
	require.Equal(t, int32(9), updated.Items[0].Quantity)

	for _, qty := range []int32{0, -1} {
		removed := cart.Reduce(base, cart.UpdateQuantity{ID: "a", Quantity: qty})
		require.Empty(t, removed.Items, "quantity %d must remove the item", qty)
	}

	absent := cart.Reduce(base, cart.UpdateQuantity{ID: "missing", Quantity: 3})
	require.Equal(t, base, absent)
}

func TestReduce_RemoveIsIdempotent(t *testing.T) {
	state := cart.Reduce(cart.State{}, cart.AddItem{Item: item("a", 100, 2)})
	state = cart.Reduce(state, cart.AddItem{Item: item("b", 50, 1)})

	once := cart.Reduce(state, cart.RemoveItem{ID: "a"})
	twice := cart.Reduce(once, cart.RemoveItem{ID: "a"})

	require.Equal(t, []string{"b"}, ids(once))
	require.Equal(t, once, twice)
}

func TestReduce_ClearKeepsVisibility(t *testing.T) {
	state := cart.Reduce(cart.State{}, cart.AddItem{Item: item("a", 100, 2)})
	state = cart.Reduce(state, cart.SetOpen{Open: true})

	cleared := cart.Reduce(state, cart.ClearCart{})
	require.Empty(t, cleared.Items)
	require.True(t, cleared.IsOpen)
}

func TestReduce_SetOpenTouchesOnlyFlag(t *testing.T) {
	state := cart.Reduce(cart.State{}, cart.AddItem{Item: item("a", 100, 2)})
	opened := cart.Reduce(state, cart.SetOpen{Open: true})

	require.True(t, opened.IsOpen)
	require.Equal(t, state.Items, opened.Items)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	state := cart.Reduce(cart.State{}, cart.AddItem{Item: item("a", 100, 2)})
	_ = cart.Reduce(state, cart.AddItem{Item: item("a", 100, 3)})
	_ = cart.Reduce(state, cart.UpdateQuantity{ID: "a", Quantity: 10})

	require.Equal(t, int32(2), state.Items[0].Quantity)
}

func TestTotals(t *testing.T) {
	state := cart.Reduce(cart.State{}, cart.AddItem{Item: item("a", 100, 2)})
	state = cart.Reduce(state, cart.AddItem{Item: item("b", 50, 1)})

	require.Equal(t, int64(250), cart.TotalPrice(state))
	require.Equal(t, int64(3), cart.TotalItems(state))
}

func TestReduce_QuantitiesSumPerID(t *testing.T) {
	adds := []cart.CartItem{
		item("a", 10, 1), item("b", 10, 2), item("a", 10, 3),
		item("c", 10, 4), item("b", 10, 5), item("a", 10, 6),
	}
	want := map[string]int32{}
	state := cart.State{}
	for _, it := range adds {
		state = cart.Reduce(state, cart.AddItem{Item: it})
		want[it.ID] += it.Quantity
	}

	require.Len(t, state.Items, len(want))
	for _, it := range state.Items {
		require.Equal(t, want[it.ID], it.Quantity, "item %s", it.ID)
	}
}

func ids(state cart.State) []string {
	result := make([]string, 0, len(state.Items))
	for _, it := range state.Items {
		result = append(result, it.ID)
	}
	return result
}

func TestActionName(t *testing.T) {
	require.Equal(t, "add_item", cart.ActionName(cart.AddItem{}))
	require.Equal(t, "remove_item", cart.ActionName(cart.RemoveItem{}))
	require.Equal(t, "update_quantity", cart.ActionName(cart.UpdateQuantity{}))
	require.Equal(t, "clear_cart", cart.ActionName(cart.ClearCart{}))
	require.Equal(t, "set_open", cart.ActionName(cart.SetOpen{}))
	require.Equal(t, "unknown", cart.ActionName(nil))
}
