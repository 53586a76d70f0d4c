package optimizer

import "slices"

// Factorize returns the prime factorisation of n as ascending primes with
// their multiplicities. n < 2 has no factors.
func Factorize(n int) (primes []int, powers []int) {
	for p := 2; p*p <= n; p++ {
		if n%p != 0 {
			continue
		}
		k := 0
		for n%p == 0 {
			n /= p
			k++
		}
		primes = append(primes, p)
		powers = append(powers, k)
	}
	if n > 1 {
		primes = append(primes, n)
		powers = append(powers, 1)
	}
	return primes, powers
}

// Divisors returns the positive divisors of n in ascending order, built
// from its prime factorisation. Divisors(1) is [1]; n < 1 has none.
func Divisors(n int) []int {
	if n < 1 {
		return nil
	}
	divs := []int{1}
	primes, powers := Factorize(n)
	for i, p := range primes {
		size := len(divs)
		f := 1
		for k := 0; k < powers[i]; k++ {
			f *= p
			for _, d := range divs[:size] {
				divs = append(divs, d*f)
			}
		}
	}
	slices.Sort(divs)
	return divs
}
